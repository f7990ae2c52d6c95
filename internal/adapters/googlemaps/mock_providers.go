package googlemaps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/ports"
)

// MockGeocodeProvider returns canned geocode results keyed by address. It
// also records per-address call counts and the peak number of concurrent
// callers, so tests can assert deduplication and bounded parallelism.
type MockGeocodeProvider struct {
	Results  map[string]ports.GeocodeResult
	Failures map[string]ports.GeocodeFailureReason
	Delay    time.Duration

	mu          sync.Mutex
	calls       map[string]int
	inFlight    int
	maxInFlight int
}

func (m *MockGeocodeProvider) Geocode(ctx context.Context, address string) (ports.GeocodeResult, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[address]++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return ports.GeocodeResult{}, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	if reason, ok := m.Failures[address]; ok {
		return ports.GeocodeResult{}, &ports.GeocodeFailure{Address: address, Reason: reason}
	}
	if r, ok := m.Results[address]; ok {
		return r, nil
	}
	return ports.GeocodeResult{}, &ports.GeocodeFailure{Address: address, Reason: ports.GeocodeNotFound}
}

// Calls reports how many times one address was looked up.
func (m *MockGeocodeProvider) Calls(address string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[address]
}

// MaxInFlight reports the peak number of concurrent lookups observed.
func (m *MockGeocodeProvider) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// MockLeg is one canned directed edge for MockDirectionsProvider.
type MockLeg struct {
	From, To       domain.Coordinate
	Meters         int
	Seconds        int
	TrafficSeconds int
}

// MockDirectionsProvider serves travel times from canned legs. Pairs not
// listed are synthesized from straight-line distance at DefaultSpeedKMH
// when that is set, and fail the call otherwise. Err makes every call fail,
// which is how tests simulate an unreachable provider.
type MockDirectionsProvider struct {
	Err             error
	DefaultSpeedKMH float64

	mu        sync.Mutex
	legs      map[string]ports.LegEstimate
	departAts []time.Time
	callCount int
}

func NewMockDirectionsProvider(legs []MockLeg) *MockDirectionsProvider {
	m := make(map[string]ports.LegEstimate, len(legs))
	for _, l := range legs {
		est := ports.LegEstimate{
			DistanceMeters:           l.Meters,
			DurationSeconds:          l.Seconds,
			DurationInTrafficSeconds: l.Seconds + l.TrafficSeconds,
		}
		m[pairKey(l.From, l.To)] = est
	}
	return &MockDirectionsProvider{legs: m}
}

func (m *MockDirectionsProvider) TravelTimes(
	_ context.Context,
	origin domain.Coordinate,
	destinations []domain.Coordinate,
	departAt time.Time,
) ([]ports.LegEstimate, error) {
	m.mu.Lock()
	m.callCount++
	m.departAts = append(m.departAts, departAt)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	out := make([]ports.LegEstimate, len(destinations))
	for i, dest := range destinations {
		if formatCoord(origin) == formatCoord(dest) {
			continue
		}
		if est, ok := m.legs[pairKey(origin, dest)]; ok {
			out[i] = est
			continue
		}
		if m.DefaultSpeedKMH <= 0 {
			return nil, fmt.Errorf("missing pair %s -> %s", formatCoord(origin), formatCoord(dest))
		}
		meters := origin.DistanceMeters(dest)
		seconds := int(meters / (m.DefaultSpeedKMH / 3.6))
		out[i] = ports.LegEstimate{
			DistanceMeters:           int(meters),
			DurationSeconds:          seconds,
			DurationInTrafficSeconds: seconds,
		}
	}
	return out, nil
}

// CallCount reports how many matrix rows were requested.
func (m *MockDirectionsProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// DepartAts returns the departure times of all requests, in call order.
func (m *MockDirectionsProvider) DepartAts() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Time, len(m.departAts))
	copy(out, m.departAts)
	return out
}

func pairKey(from, to domain.Coordinate) string {
	return formatCoord(from) + "|" + formatCoord(to)
}
