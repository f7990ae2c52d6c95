// Package geocode resolves postal addresses to coordinates through a cache,
// deduplicating in-flight lookups and bounding provider concurrency.
package geocode

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/metrics"
	"fieldservice-dispatch/internal/platform/obs"
	"fieldservice-dispatch/internal/ports"
)

// Outcome is the per-address result of a batch resolution: either a
// coordinate with its confidence tier, or the failure that prevented one.
type Outcome struct {
	Result  ports.GeocodeResult
	Failure *ports.GeocodeFailure
}

func (o Outcome) OK() bool { return o.Failure == nil }

// Resolver turns addresses into coordinates. Results are cached against the
// normalized address; concurrent lookups of the same address collapse into
// one provider call, and a batch never issues more than workers calls at
// once.
type Resolver struct {
	provider ports.GeocodeProvider
	cache    ports.GeocodeCache
	workers  int
	fallback domain.Coordinate

	group singleflight.Group
}

func NewResolver(provider ports.GeocodeProvider, cache ports.GeocodeCache, workers int, fallback domain.Coordinate) *Resolver {
	if workers < 1 {
		workers = 1
	}
	return &Resolver{
		provider: provider,
		cache:    cache,
		workers:  workers,
		fallback: fallback,
	}
}

// Fallback returns the deterministic service-area centroid used when an
// address cannot be resolved.
func (r *Resolver) Fallback() domain.Coordinate { return r.fallback }

// ResolveBatch resolves every address and returns an outcome per input
// address, keyed by the address as given. All outcomes are collected before
// returning; one slow or failed lookup never blocks the rest. The only
// error returned is context cancellation.
func (r *Resolver) ResolveBatch(ctx context.Context, addresses []string) (_ map[string]Outcome, err error) {
	defer obs.Time(ctx, "geocode.resolveBatch")(&err)

	byKey := make(map[string]Outcome)
	originals := make(map[string]string)
	keys := make([]string, 0, len(addresses))

	for _, addr := range addresses {
		key := domain.NormalizeAddress(addr)
		if key == "" {
			continue
		}
		if _, ok := originals[key]; ok {
			continue
		}
		originals[key] = addr
		keys = append(keys, key)
	}

	cached, err := r.cache.GetMany(ctx, keys)
	if err != nil {
		// cache trouble means more provider calls, not a failed batch
		cached = map[string]ports.GeocodeResult{}
	}

	var missing []string
	for _, key := range keys {
		if res, ok := cached[key]; ok {
			byKey[key] = Outcome{Result: res}
			metrics.GeocodeLookups.WithLabelValues("cache").Inc()
		} else {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		resolved, err := r.lookup(ctx, missing, originals)
		if err != nil {
			return nil, err
		}

		fresh := make(map[string]ports.GeocodeResult)
		for key, outcome := range resolved {
			byKey[key] = outcome
			if outcome.OK() {
				fresh[key] = outcome.Result
				metrics.GeocodeLookups.WithLabelValues("provider").Inc()
			} else {
				metrics.GeocodeLookups.WithLabelValues("failed").Inc()
			}
		}
		if len(fresh) > 0 {
			if err := r.cache.PutMany(ctx, fresh); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("geocode cache write failed")
			}
		}
	}

	out := make(map[string]Outcome, len(addresses))
	for _, addr := range addresses {
		key := domain.NormalizeAddress(addr)
		if key == "" {
			out[addr] = Outcome{Failure: &ports.GeocodeFailure{Address: addr, Reason: ports.GeocodeNotFound}}
			continue
		}
		out[addr] = byKey[key]
	}
	return out, nil
}

// ResolveStart resolves a route's start location, substituting the
// service-area centroid when the lookup fails. The second return reports
// whether the fallback was used.
func (r *Resolver) ResolveStart(ctx context.Context, address string) (ports.GeocodeResult, bool, error) {
	outcomes, err := r.ResolveBatch(ctx, []string{address})
	if err != nil {
		return ports.GeocodeResult{}, false, err
	}

	outcome := outcomes[address]
	if outcome.OK() {
		return outcome.Result, false, nil
	}

	metrics.GeocodeLookups.WithLabelValues("fallback").Inc()
	return ports.GeocodeResult{
		Coord:      r.fallback,
		Confidence: ports.ConfidenceApproximate,
	}, true, nil
}

// lookup fans provider calls out over the worker pool, collapsing
// duplicate keys through singleflight so concurrent batches share one call
// per address.
func (r *Resolver) lookup(ctx context.Context, keys []string, originals map[string]string) (map[string]Outcome, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	var mu sync.Mutex
	out := make(map[string]Outcome, len(keys))

	for _, key := range keys {
		key := key
		addr := originals[key]

		g.Go(func() error {
			v, err, _ := r.group.Do(key, func() (any, error) {
				return r.provider.Geocode(gctx, addr)
			})
			if err != nil {
				var gf *ports.GeocodeFailure
				if !errors.As(err, &gf) {
					return err
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				out[key] = Outcome{Failure: gf}
				mu.Unlock()
				return nil
			}

			mu.Lock()
			out[key] = Outcome{Result: v.(ports.GeocodeResult)}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
