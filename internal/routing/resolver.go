package routing

import (
	"context"
	"time"

	"github.com/sakay-ph/service-booking/internal/domain/booking"
	"go.uber.org/zap"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultMaxAlternatives = 2
)

// Resolver implements booking.RouteResolver on top of a Provider.
type Resolver struct {
	provider        Provider
	timeout         time.Duration
	maxAlternatives int
	logger          *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxAlternatives caps the alternatives kept after the primary route.
func WithMaxAlternatives(n int) ResolverOption {
	return func(r *Resolver) {
		if n >= 0 {
			r.maxAlternatives = n
		}
	}
}

// NewResolver creates a Resolver. A nil provider always yields the straight-line fallback.
func NewResolver(provider Provider, logger *zap.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider:        provider,
		timeout:         defaultTimeout,
		maxAlternatives: defaultMaxAlternatives,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the provider's best route plus alternatives, or a haversine estimate
// with no path and no duration when the provider fails, times out or finds nothing.
func (r *Resolver) Resolve(ctx context.Context, start, end booking.Coordinate) booking.RouteResult {
	if r.provider == nil {
		return Fallback(start, end)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	routes, err := r.provider.Route(ctx, start, end)
	if err == nil && len(routes) == 0 {
		err = ErrNoRoute
	}
	if err != nil {
		r.logger.Warn("route provider failed, using straight-line distance",
			zap.String("provider", r.provider.Name()),
			zap.String("start", start.String()),
			zap.String("end", end.String()),
			zap.Error(err),
		)
		return Fallback(start, end)
	}

	alts := routes[1:]
	if len(alts) > r.maxAlternatives {
		alts = alts[:r.maxAlternatives]
	}
	return booking.RouteResult{
		Primary:      routes[0],
		Alternatives: append([]booking.Route{}, alts...),
	}
}

// Fallback is the degraded result used when no routed path is obtainable.
func Fallback(start, end booking.Coordinate) booking.RouteResult {
	return booking.RouteResult{
		Primary: booking.Route{
			Coordinates: []booking.Coordinate{},
			DistanceKm:  booking.HaversineKm(start, end),
		},
		Alternatives: []booking.Route{},
		Fallback:     true,
	}
}
