package cache

import (
	"context"

	"github.com/rs/zerolog"

	"fieldservice-dispatch/internal/ports"
)

// TieredGeocodeCache reads through an in-process tier and then a shared
// tier. A failing shared tier degrades to misses rather than failing the
// lookup; geocoding must keep working when Redis is down.
type TieredGeocodeCache struct {
	local  ports.GeocodeCache
	shared ports.GeocodeCache
}

// NewTieredGeocodeCache composes the tiers. shared may be nil, which
// disables that tier entirely.
func NewTieredGeocodeCache(local, shared ports.GeocodeCache) *TieredGeocodeCache {
	return &TieredGeocodeCache{local: local, shared: shared}
}

func (c *TieredGeocodeCache) GetMany(ctx context.Context, keys []string) (map[string]ports.GeocodeResult, error) {
	out, err := c.local.GetMany(ctx, keys)
	if err != nil {
		out = map[string]ports.GeocodeResult{}
	}

	if c.shared == nil || len(out) == len(keys) {
		return out, nil
	}

	missing := make([]string, 0, len(keys)-len(out))
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}

	fromShared, err := c.shared.GetMany(ctx, missing)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("shared geocode cache unavailable, treating as miss")
		return out, nil
	}

	for k, r := range fromShared {
		out[k] = r
	}
	// promote shared hits so the next batch stays local
	if len(fromShared) > 0 {
		_ = c.local.PutMany(ctx, fromShared)
	}
	return out, nil
}

func (c *TieredGeocodeCache) PutMany(ctx context.Context, entries map[string]ports.GeocodeResult) error {
	if err := c.local.PutMany(ctx, entries); err != nil {
		return err
	}
	if c.shared != nil {
		if err := c.shared.PutMany(ctx, entries); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("shared geocode cache write failed")
		}
	}
	return nil
}
