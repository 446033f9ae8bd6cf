package geocoding

import (
	"context"
	"strings"
	"time"

	"github.com/sakay-ph/service-booking/internal/domain/booking"
	"go.uber.org/zap"
)

const (
	defaultLimit   = 10
	defaultTimeout = 10 * time.Second
)

// Resolver implements booking.AddressResolver. Provider and cache failures are logged
// and turned into empty results.
type Resolver struct {
	geocoder Geocoder
	cache    Cache
	limit    int
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache puts c in front of the geocoder.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLimit lowers the number of search results. Values above the default cap are
// clamped to it.
func WithLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = min(n, defaultLimit)
		}
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(geocoder Geocoder, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder: geocoder,
		limit:    defaultLimit,
		timeout:  defaultTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search returns at most the configured number of places matching query, biased toward
// bias. An empty result means either no match or an unavailable provider.
func (r *Resolver) Search(ctx context.Context, query string, bias booking.Coordinate) []booking.Place {
	query = strings.TrimSpace(query)
	if query == "" {
		return []booking.Place{}
	}

	if r.cache != nil {
		places, ok, err := r.cache.GetSearch(ctx, query, bias)
		if err != nil {
			r.logger.Warn("geocode cache read failed", zap.Error(err))
		} else if ok {
			return r.capped(places)
		}
	}

	pctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	places, err := r.geocoder.Search(pctx, query, bias, r.limit)
	if err != nil {
		r.logger.Warn("address search failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return []booking.Place{}
	}
	places = r.capped(places)

	if r.cache != nil {
		if err := r.cache.PutSearch(ctx, query, bias, places); err != nil {
			r.logger.Warn("geocode cache write failed", zap.Error(err))
		}
	}
	return places
}

// Reverse returns a label for c, or "" when none could be obtained.
func (r *Resolver) Reverse(ctx context.Context, c booking.Coordinate) string {
	if r.cache != nil {
		label, ok, err := r.cache.GetReverse(ctx, c)
		if err != nil {
			r.logger.Warn("geocode cache read failed", zap.Error(err))
		} else if ok {
			return label
		}
	}

	pctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	label, err := r.geocoder.Reverse(pctx, c)
	if err != nil {
		r.logger.Warn("reverse geocode failed",
			zap.String("coordinate", c.String()),
			zap.Error(err),
		)
		return ""
	}

	if r.cache != nil && label != "" {
		if err := r.cache.PutReverse(ctx, c, label); err != nil {
			r.logger.Warn("geocode cache write failed", zap.Error(err))
		}
	}
	return label
}

func (r *Resolver) capped(places []booking.Place) []booking.Place {
	if places == nil {
		return []booking.Place{}
	}
	if len(places) > r.limit {
		return places[:r.limit]
	}
	return places
}
