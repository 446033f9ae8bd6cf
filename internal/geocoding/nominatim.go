// Package geocoding turns free text into places and coordinates into labels using
// Nominatim, with an optional Redis cache in front.
package geocoding

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

// biasSpan is the half-width, in degrees, of the viewbox used to bias search results.
const biasSpan = 0.5

// Geocoder is the provider contract the Resolver depends on.
type Geocoder interface {
	Search(ctx context.Context, query string, bias booking.Coordinate, limit int) ([]booking.Place, error)
	Reverse(ctx context.Context, c booking.Coordinate) (string, error)
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

type nominatimReverse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// NominatimClient queries a Nominatim instance with format=jsonv2.
type NominatimClient struct {
	baseURL      string
	countryCodes string
	language     string
	client       *httpx.Client
}

// NewNominatimClient creates a NominatimClient. countryCodes is a comma separated ISO
// 3166-1 alpha-2 list ("ph"); empty disables the filter.
func NewNominatimClient(baseURL, countryCodes, language string, client *httpx.Client) *NominatimClient {
	if client == nil {
		client = httpx.NewClient()
	}
	return &NominatimClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		countryCodes: countryCodes,
		language:     language,
		client:       client,
	}
}

// Search forward-geocodes query, preferring results inside a box around bias.
func (n *NominatimClient) Search(ctx context.Context, query string, bias booking.Coordinate, limit int) ([]booking.Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	if bias.Valid() {
		params.Set("viewbox", viewbox(bias))
	}
	if n.countryCodes != "" {
		params.Set("countrycodes", n.countryCodes)
	}
	if n.language != "" {
		params.Set("accept-language", n.language)
	}

	var results []nominatimPlace
	if err := n.client.GetJSON(ctx, n.baseURL+"/search", params, &results); err != nil {
		return nil, fmt.Errorf("nominatim search: %w", err)
	}

	places := make([]booking.Place, 0, len(results))
	for _, r := range results {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lng, errLng := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		category := r.Type
		if category == "" {
			category = r.Category
		}
		places = append(places, booking.Place{
			Coordinate:  booking.Coordinate{Lat: lat, Lng: lng},
			DisplayName: r.DisplayName,
			Category:    category,
		})
	}
	return places, nil
}

// Reverse returns the display name of the feature nearest to c.
func (n *NominatimClient) Reverse(ctx context.Context, c booking.Coordinate) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(c.Lng, 'f', -1, 64))
	params.Set("format", "jsonv2")
	if n.language != "" {
		params.Set("accept-language", n.language)
	}

	var result nominatimReverse
	if err := n.client.GetJSON(ctx, n.baseURL+"/reverse", params, &result); err != nil {
		return "", fmt.Errorf("nominatim reverse: %w", err)
	}
	if result.Error != "" {
		return "", errors.New("nominatim reverse: " + result.Error)
	}
	return result.DisplayName, nil
}

// viewbox renders Nominatim's "left,top,right,bottom" box around c.
func viewbox(c booking.Coordinate) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return strings.Join([]string{
		f(c.Lng - biasSpan), f(c.Lat + biasSpan), f(c.Lng + biasSpan), f(c.Lat - biasSpan),
	}, ",")
}
