// Package routing resolves driving routes between two points through a pluggable
// provider and degrades to a straight-line estimate when the provider is unavailable.
package routing

import (
	"context"

	"github.com/sakay-ph/service-booking/internal/domain/booking"
)

// Provider fetches driving routes, best first. Implementations return an error for
// transport failures, malformed payloads and empty route sets alike.
type Provider interface {
	Route(ctx context.Context, start, end booking.Coordinate) ([]booking.Route, error)
	Name() string
}

func metresToKm(m float64) float64 { return m / 1000 }

func secondsToMinutes(s float64) *float64 {
	m := s / 60
	return &m
}
