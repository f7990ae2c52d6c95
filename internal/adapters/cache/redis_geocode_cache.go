package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/platform/obs"
	"fieldservice-dispatch/internal/ports"
)

// Cached coordinates outlive any one optimization run; refreshes happen by
// natural expiry, never mid-run.
const geocodeTTL = 30 * 24 * time.Hour

type cachedGeocode struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Confidence string  `json:"conf"`
}

// RedisGeocodeCache is the shared address→coordinate cache tier, used
// across process restarts and replicas.
type RedisGeocodeCache struct {
	client *redis.Client
}

// NewRedisGeocodeCache builds the cache from a Redis URL.
func NewRedisGeocodeCache(redisURL string) (*RedisGeocodeCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("geocode cache: parse redis url: %w", err)
	}
	return &RedisGeocodeCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisGeocodeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisGeocodeCache) Close() error {
	return c.client.Close()
}

func (c *RedisGeocodeCache) GetMany(ctx context.Context, keys []string) (_ map[string]ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if len(keys) == 0 {
		return map[string]ports.GeocodeResult{}, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = geocodeKey(k)
	}

	vals, err := c.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("geocode cache: mget: %w", err)
	}

	out := make(map[string]ports.GeocodeResult, len(keys))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry cachedGeocode
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			// stale or corrupt entry, treat as a miss
			continue
		}
		out[keys[i]] = fromCached(entry)
	}
	return out, nil
}

func (c *RedisGeocodeCache) PutMany(ctx context.Context, entries map[string]ports.GeocodeResult) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if len(entries) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for k, r := range entries {
		if k == "" {
			continue
		}
		raw, err := json.Marshal(toCached(r))
		if err != nil {
			return fmt.Errorf("geocode cache: marshal entry %q: %w", k, err)
		}
		pipe.Set(ctx, geocodeKey(k), raw, geocodeTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("geocode cache: pipeline exec: %w", err)
	}
	return nil
}

func geocodeKey(normalizedAddress string) string {
	return "geocode:" + normalizedAddress
}

func toCached(r ports.GeocodeResult) cachedGeocode {
	return cachedGeocode{Lat: r.Coord.Lat, Lng: r.Coord.Lng, Confidence: string(r.Confidence)}
}

func fromCached(e cachedGeocode) ports.GeocodeResult {
	conf := ports.GeocodeConfidence(e.Confidence)
	if conf != ports.ConfidenceExact && conf != ports.ConfidenceApproximate {
		conf = ports.ConfidenceApproximate
	}
	return ports.GeocodeResult{
		Coord:      domain.Coordinate{Lat: e.Lat, Lng: e.Lng},
		Confidence: conf,
	}
}
