package cache

import (
	"context"
	"sync"

	"fieldservice-dispatch/internal/ports"
)

// MemoryGeocodeCache is an in-process address→coordinate cache. It is the
// first tier in front of Redis and holds entries for the life of the
// process.
type MemoryGeocodeCache struct {
	mu      sync.RWMutex
	entries map[string]ports.GeocodeResult
}

func NewMemoryGeocodeCache() *MemoryGeocodeCache {
	return &MemoryGeocodeCache{entries: make(map[string]ports.GeocodeResult)}
}

func (c *MemoryGeocodeCache) GetMany(_ context.Context, keys []string) (map[string]ports.GeocodeResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]ports.GeocodeResult, len(keys))
	for _, k := range keys {
		if r, ok := c.entries[k]; ok {
			out[k] = r
		}
	}
	return out, nil
}

func (c *MemoryGeocodeCache) PutMany(_ context.Context, entries map[string]ports.GeocodeResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, r := range entries {
		if k == "" {
			continue
		}
		c.entries[k] = r
	}
	return nil
}
