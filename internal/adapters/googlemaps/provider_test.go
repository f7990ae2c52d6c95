package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-dispatch/internal/config"
	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/ports"
)

func testProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewProvider(config.MapsConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		Timeout:           5 * time.Second,
		MaxRetries:        3,
		RequestsPerSecond: 100,
	})
	require.NoError(t, err)
	return p
}

func TestGeocodeParsesRooftopResult(t *testing.T) {
	p := testProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "123 Main St", r.URL.Query().Get("address"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 40.7128, "lng": -74.006}, "location_type": "ROOFTOP"}}]
		}`))
	}))

	got, err := p.Geocode(context.Background(), "123 Main St")
	require.NoError(t, err)

	assert.InDelta(t, 40.7128, got.Coord.Lat, 1e-9)
	assert.InDelta(t, -74.006, got.Coord.Lng, 1e-9)
	assert.Equal(t, ports.ConfidenceExact, got.Confidence)
}

func TestGeocodeInterpolatedIsApproximate(t *testing.T) {
	p := testProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 1, "lng": 2}, "location_type": "RANGE_INTERPOLATED"}}]
		}`))
	}))

	got, err := p.Geocode(context.Background(), "somewhere vague")
	require.NoError(t, err)
	assert.Equal(t, ports.ConfidenceApproximate, got.Confidence)
}

func TestGeocodeZeroResults(t *testing.T) {
	p := testProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))

	_, err := p.Geocode(context.Background(), "nowhere at all")

	var gf *ports.GeocodeFailure
	require.True(t, errors.As(err, &gf))
	assert.Equal(t, ports.GeocodeNotFound, gf.Reason)
}

func TestGeocodeRetriesRateLimit(t *testing.T) {
	var hits atomic.Int32
	p := testProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 1, "lng": 2}, "location_type": "ROOFTOP"}}]
		}`))
	}))

	_, err := p.Geocode(context.Background(), "123 Main St")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTravelTimesParsesRow(t *testing.T) {
	p := testProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/distancematrix/json", r.URL.Path)
		assert.Equal(t, "best_guess", r.URL.Query().Get("traffic_model"))
		assert.NotEmpty(t, r.URL.Query().Get("departure_time"))

		w.Write([]byte(`{
			"status": "OK",
			"rows": [{"elements": [
				{"status": "OK", "distance": {"value": 1200}, "duration": {"value": 300}, "duration_in_traffic": {"value": 360}},
				{"status": "OK", "distance": {"value": 2500}, "duration": {"value": 540}}
			]}]
		}`))
	}))

	got, err := p.TravelTimes(
		context.Background(),
		domain.Coordinate{Lat: 40, Lng: -74},
		[]domain.Coordinate{{Lat: 40.1, Lng: -74.1}, {Lat: 40.2, Lng: -74.2}},
		time.Now().Add(time.Hour),
	)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, ports.LegEstimate{DistanceMeters: 1200, DurationSeconds: 300, DurationInTrafficSeconds: 360}, got[0])
	assert.Equal(t, ports.LegEstimate{DistanceMeters: 2500, DurationSeconds: 540, DurationInTrafficSeconds: 0}, got[1])
}

func TestTravelTimesElementFailureFailsRow(t *testing.T) {
	p := testProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"rows": [{"elements": [{"status": "NOT_FOUND"}]}]
		}`))
	}))

	_, err := p.TravelTimes(
		context.Background(),
		domain.Coordinate{Lat: 40, Lng: -74},
		[]domain.Coordinate{{Lat: 40.1, Lng: -74.1}},
		time.Time{},
	)
	require.Error(t, err)
}
