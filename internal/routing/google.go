package routing

import (
	"context"
	"fmt"

	"github.com/sakay-ph/service-booking/internal/domain/booking"
	"googlemaps.github.io/maps"
)

// GoogleProvider resolves routes with the Google Directions API.
type GoogleProvider struct {
	client *maps.Client
	region string
}

// NewGoogleProvider creates a GoogleProvider. Extra client options (base URL, HTTP
// client) are passed through to maps.NewClient.
func NewGoogleProvider(apiKey, region string, opts ...maps.ClientOption) (*GoogleProvider, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleProvider{client: client, region: region}, nil
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Route implements Provider.
func (p *GoogleProvider) Route(ctx context.Context, start, end booking.Coordinate) ([]booking.Route, error) {
	r := &maps.DirectionsRequest{
		Origin:       start.String(),
		Destination:  end.String(),
		Mode:         maps.TravelModeDriving,
		Alternatives: true,
		Region:       p.region,
	}

	routes, _, err := p.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoute
	}

	out := make([]booking.Route, 0, len(routes))
	for i, route := range routes {
		if len(route.Legs) == 0 {
			return nil, fmt.Errorf("maps route %d: no legs", i)
		}
		path, err := route.OverviewPolyline.Decode()
		if err != nil {
			return nil, fmt.Errorf("maps route %d: decode polyline: %w", i, err)
		}

		var metres int
		var seconds float64
		for _, leg := range route.Legs {
			metres += leg.Distance.Meters
			seconds += leg.Duration.Seconds()
		}

		coords := make([]booking.Coordinate, len(path))
		for j, ll := range path {
			coords[j] = booking.Coordinate{Lat: ll.Lat, Lng: ll.Lng}
		}
		out = append(out, booking.Route{
			Coordinates:     coords,
			DistanceKm:      metresToKm(float64(metres)),
			DurationMinutes: secondsToMinutes(seconds),
		})
	}
	return out, nil
}
