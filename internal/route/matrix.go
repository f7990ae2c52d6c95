package route

import (
	"context"
	"fmt"
	"math"
	"time"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/ports"
)

// Departure times are bucketed so that cost lookups made while candidate
// orders are evaluated share provider rows instead of re-fetching for every
// few-second shift of the simulated clock.
const departureBucket = 5 * time.Minute

type rowKey struct {
	from   int
	bucket int64
}

// matrix serves time-dependent leg estimates between route points. Point 0
// is the start location; point i+1 is stops[i]. In live mode rows come from
// the directions provider per (origin, departure bucket); in degraded mode
// estimates are synthesized from straight-line distance at a fixed speed
// and never fail.
type matrix struct {
	directions ports.DirectionsProvider
	points     []domain.Coordinate
	rows       map[rowKey][]ports.LegEstimate
	speedMS    float64
}

func newLiveMatrix(directions ports.DirectionsProvider, points []domain.Coordinate) *matrix {
	return &matrix{
		directions: directions,
		points:     points,
		rows:       make(map[rowKey][]ports.LegEstimate),
	}
}

func newDegradedMatrix(points []domain.Coordinate, speedKMH float64) *matrix {
	if speedKMH <= 0 {
		speedKMH = 35
	}
	return &matrix{
		points:  points,
		speedMS: speedKMH / 3.6,
	}
}

func (m *matrix) degraded() bool { return m.directions == nil }

func (m *matrix) leg(ctx context.Context, from, to int, departAt time.Time) (ports.LegEstimate, error) {
	if from == to {
		return ports.LegEstimate{}, nil
	}

	if m.degraded() {
		meters := m.points[from].DistanceMeters(m.points[to])
		return ports.LegEstimate{
			DistanceMeters:  int(math.Round(meters)),
			DurationSeconds: int(math.Round(meters / m.speedMS)),
		}, nil
	}

	bucket := departAt.Truncate(departureBucket)
	key := rowKey{from: from, bucket: bucket.Unix()}

	row, ok := m.rows[key]
	if !ok {
		var err error
		row, err = m.directions.TravelTimes(ctx, m.points[from], m.points, bucket)
		if err != nil {
			return ports.LegEstimate{}, fmt.Errorf("travel times from point %d: %w", from, err)
		}
		if len(row) != len(m.points) {
			return ports.LegEstimate{}, fmt.Errorf(
				"travel times row length %d does not match %d points", len(row), len(m.points),
			)
		}
		m.rows[key] = row
	}

	return row[to], nil
}

// effectiveSeconds is the traffic-adjusted travel time of a leg. Light
// traffic never shortens a leg below its base duration, which keeps total
// duration monotonic in the injected delays.
func effectiveSeconds(est ports.LegEstimate) int {
	if est.DurationInTrafficSeconds > est.DurationSeconds {
		return est.DurationInTrafficSeconds
	}
	return est.DurationSeconds
}

// trafficDelaySeconds is the extra time attributable to traffic, never
// negative.
func trafficDelaySeconds(est ports.LegEstimate) int {
	if d := est.DurationInTrafficSeconds - est.DurationSeconds; d > 0 {
		return d
	}
	return 0
}

// classifyTraffic grades a leg by the ratio of in-traffic to base duration.
func classifyTraffic(est ports.LegEstimate) domain.TrafficCondition {
	if est.DurationSeconds <= 0 || est.DurationInTrafficSeconds <= 0 {
		return domain.TrafficUnknown
	}
	ratio := float64(est.DurationInTrafficSeconds) / float64(est.DurationSeconds)
	switch {
	case ratio < 0.95:
		return domain.TrafficLight
	case ratio <= 1.1:
		return domain.TrafficNormal
	case ratio <= 1.35:
		return domain.TrafficModerate
	default:
		return domain.TrafficHeavy
	}
}
