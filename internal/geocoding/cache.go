package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakay-ph/service-booking/internal/domain/booking"
)

const keyPrefix = "geocode:"

// Cache stores provider answers. A miss is (zero, false, nil).
type Cache interface {
	GetSearch(ctx context.Context, query string, bias booking.Coordinate) ([]booking.Place, bool, error)
	PutSearch(ctx context.Context, query string, bias booking.Coordinate, places []booking.Place) error
	GetReverse(ctx context.Context, c booking.Coordinate) (string, bool, error)
	PutReverse(ctx context.Context, c booking.Coordinate, label string) error
}

// RedisCache is a Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a RedisCache. A non-positive ttl stores keys without expiry.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// GetSearch implements Cache.
func (c *RedisCache) GetSearch(ctx context.Context, query string, bias booking.Coordinate) ([]booking.Place, bool, error) {
	raw, err := c.rdb.Get(ctx, searchKey(query, bias)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get search cache: %w", err)
	}

	var places []booking.Place
	if err := json.Unmarshal(raw, &places); err != nil {
		return nil, false, fmt.Errorf("decode search cache: %w", err)
	}
	return places, true, nil
}

// PutSearch implements Cache.
func (c *RedisCache) PutSearch(ctx context.Context, query string, bias booking.Coordinate, places []booking.Place) error {
	raw, err := json.Marshal(places)
	if err != nil {
		return fmt.Errorf("encode search cache: %w", err)
	}
	if err := c.rdb.Set(ctx, searchKey(query, bias), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("put search cache: %w", err)
	}
	return nil
}

// GetReverse implements Cache.
func (c *RedisCache) GetReverse(ctx context.Context, coord booking.Coordinate) (string, bool, error) {
	label, err := c.rdb.Get(ctx, reverseKey(coord)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get reverse cache: %w", err)
	}
	return label, true, nil
}

// PutReverse implements Cache.
func (c *RedisCache) PutReverse(ctx context.Context, coord booking.Coordinate, label string) error {
	if err := c.rdb.Set(ctx, reverseKey(coord), label, c.ttl).Err(); err != nil {
		return fmt.Errorf("put reverse cache: %w", err)
	}
	return nil
}

// reverseKey rounds to 5 decimals (about 1 m), close enough to share a label.
func reverseKey(c booking.Coordinate) string {
	return fmt.Sprintf("%sreverse:%.5f,%.5f", keyPrefix, c.Lat, c.Lng)
}

// searchKey normalizes the query and coarsens the bias so nearby sessions share entries.
func searchKey(query string, bias booking.Coordinate) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("%ssearch:%.2f,%.2f:%s", keyPrefix, bias.Lat, bias.Lng, norm)
}
