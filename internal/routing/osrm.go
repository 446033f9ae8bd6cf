package routing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/sakay-ph/service-booking/internal/httpx"
)

// ErrNoRoute is returned when the provider answers successfully but without a route.
var ErrNoRoute = errors.New("no route found")

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// OSRMProvider talks to an OSRM-compatible /route/v1 endpoint.
type OSRMProvider struct {
	baseURL string
	profile string
	client  *httpx.Client
}

// NewOSRMProvider creates an OSRMProvider. profile defaults to "driving".
func NewOSRMProvider(baseURL, profile string, client *httpx.Client) *OSRMProvider {
	if profile == "" {
		profile = "driving"
	}
	if client == nil {
		client = httpx.NewClient()
	}
	return &OSRMProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		client:  client,
	}
}

// Name implements Provider.
func (p *OSRMProvider) Name() string { return "osrm" }

// Route implements Provider. OSRM wants "lng,lat" pairs and answers with GeoJSON
// [lng, lat] positions, metres and seconds.
func (p *OSRMProvider) Route(ctx context.Context, start, end booking.Coordinate) ([]booking.Route, error) {
	endpoint := fmt.Sprintf("%s/route/v1/%s/%s;%s", p.baseURL, p.profile, lngLat(start), lngLat(end))

	q := url.Values{}
	q.Set("alternatives", "true")
	q.Set("overview", "full")
	q.Set("geometries", "geojson")

	var decoded osrmResponse
	if err := p.client.GetJSON(ctx, endpoint, q, &decoded); err != nil {
		return nil, fmt.Errorf("osrm route: %w", err)
	}
	if decoded.Code != "Ok" {
		return nil, fmt.Errorf("osrm route: code %q: %s", decoded.Code, decoded.Message)
	}
	if len(decoded.Routes) == 0 {
		return nil, ErrNoRoute
	}

	routes := make([]booking.Route, 0, len(decoded.Routes))
	for i, r := range decoded.Routes {
		coords := make([]booking.Coordinate, 0, len(r.Geometry.Coordinates))
		for _, pos := range r.Geometry.Coordinates {
			if len(pos) < 2 {
				return nil, fmt.Errorf("osrm route %d: invalid position %v", i, pos)
			}
			coords = append(coords, booking.Coordinate{Lat: pos[1], Lng: pos[0]})
		}
		routes = append(routes, booking.Route{
			Coordinates:     coords,
			DistanceKm:      metresToKm(r.Distance),
			DurationMinutes: secondsToMinutes(r.Duration),
		})
	}
	return routes, nil
}

func lngLat(c booking.Coordinate) string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}
