package geocode_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-dispatch/internal/adapters/cache"
	"fieldservice-dispatch/internal/adapters/googlemaps"
	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/geocode"
	"fieldservice-dispatch/internal/ports"
)

var centroid = domain.Coordinate{Lat: 39.95, Lng: -75.16}

func exactAt(lat, lng float64) ports.GeocodeResult {
	return ports.GeocodeResult{
		Coord:      domain.Coordinate{Lat: lat, Lng: lng},
		Confidence: ports.ConfidenceExact,
	}
}

func TestResolveBatchCachesProviderResults(t *testing.T) {
	provider := &googlemaps.MockGeocodeProvider{
		Results: map[string]ports.GeocodeResult{
			"123 Main St": exactAt(40.0, -75.0),
			"9 Elm Ave":   exactAt(40.1, -75.1),
		},
	}
	r := geocode.NewResolver(provider, cache.NewMemoryGeocodeCache(), 8, centroid)
	ctx := context.Background()

	first, err := r.ResolveBatch(ctx, []string{"123 Main St", "9 Elm Ave"})
	require.NoError(t, err)
	require.True(t, first["123 Main St"].OK())
	require.True(t, first["9 Elm Ave"].OK())

	second, err := r.ResolveBatch(ctx, []string{"123 Main St", "9 Elm Ave"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, provider.Calls("123 Main St"))
	assert.Equal(t, 1, provider.Calls("9 Elm Ave"))
}

func TestResolveBatchNormalizesDuplicates(t *testing.T) {
	provider := &googlemaps.MockGeocodeProvider{
		Results: map[string]ports.GeocodeResult{
			"123 Main St": exactAt(40.0, -75.0),
		},
	}
	r := geocode.NewResolver(provider, cache.NewMemoryGeocodeCache(), 8, centroid)

	out, err := r.ResolveBatch(context.Background(), []string{
		"123 Main St",
		"123  MAIN  st",
		"  123 main st ",
	})
	require.NoError(t, err)

	// one provider call; every raw spelling gets the same outcome
	assert.Equal(t, 1, provider.Calls("123 Main St"))
	require.Len(t, out, 3)
	for addr, outcome := range out {
		require.True(t, outcome.OK(), "address %q", addr)
		assert.Equal(t, 40.0, outcome.Result.Coord.Lat)
	}
}

func TestResolveBatchBoundsParallelism(t *testing.T) {
	results := make(map[string]ports.GeocodeResult)
	addresses := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		addr := string(rune('a'+i)) + " street"
		addresses = append(addresses, addr)
		results[addr] = exactAt(float64(i), float64(-i))
	}

	provider := &googlemaps.MockGeocodeProvider{Results: results, Delay: 20 * time.Millisecond}
	r := geocode.NewResolver(provider, cache.NewMemoryGeocodeCache(), 3, centroid)

	out, err := r.ResolveBatch(context.Background(), addresses)
	require.NoError(t, err)
	assert.Len(t, out, 20)
	assert.LessOrEqual(t, provider.MaxInFlight(), 3)
}

func TestResolveBatchFailureDoesNotSinkOthers(t *testing.T) {
	provider := &googlemaps.MockGeocodeProvider{
		Results: map[string]ports.GeocodeResult{
			"123 Main St": exactAt(40.0, -75.0),
		},
		Failures: map[string]ports.GeocodeFailureReason{
			"unknown place": ports.GeocodeNotFound,
			"flaky place":   ports.GeocodeProviderError,
		},
	}
	r := geocode.NewResolver(provider, cache.NewMemoryGeocodeCache(), 8, centroid)

	out, err := r.ResolveBatch(context.Background(), []string{"123 Main St", "unknown place", "flaky place"})
	require.NoError(t, err)

	assert.True(t, out["123 Main St"].OK())

	require.False(t, out["unknown place"].OK())
	assert.Equal(t, ports.GeocodeNotFound, out["unknown place"].Failure.Reason)

	require.False(t, out["flaky place"].OK())
	assert.Equal(t, ports.GeocodeProviderError, out["flaky place"].Failure.Reason)
}

func TestResolveBatchEmptyAddressIsNotFound(t *testing.T) {
	provider := &googlemaps.MockGeocodeProvider{}
	r := geocode.NewResolver(provider, cache.NewMemoryGeocodeCache(), 8, centroid)

	out, err := r.ResolveBatch(context.Background(), []string{"   "})
	require.NoError(t, err)

	outcome := out["   "]
	require.False(t, outcome.OK())
	assert.Equal(t, ports.GeocodeNotFound, outcome.Failure.Reason)
}

func TestResolveStartFallsBackToCentroid(t *testing.T) {
	provider := &googlemaps.MockGeocodeProvider{
		Failures: map[string]ports.GeocodeFailureReason{
			"warehouse": ports.GeocodeProviderError,
		},
	}
	r := geocode.NewResolver(provider, cache.NewMemoryGeocodeCache(), 8, centroid)

	got, usedFallback, err := r.ResolveStart(context.Background(), "warehouse")
	require.NoError(t, err)

	assert.True(t, usedFallback)
	assert.Equal(t, centroid, got.Coord)
	assert.Equal(t, ports.ConfidenceApproximate, got.Confidence)
}
