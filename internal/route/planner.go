// Package route orders a technician's stops into a traffic-aware route.
//
// Optimization is a pure function of (start, stop set, departure time): it
// geocodes every stop, builds the order with cheapest insertion plus 2-opt
// over traffic-adjusted travel times, and falls back to straight-line
// estimates when the directions provider is unreachable.
package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/geocode"
	"fieldservice-dispatch/internal/metrics"
	"fieldservice-dispatch/internal/platform/obs"
	"fieldservice-dispatch/internal/ports"
)

// ErrNoStops rejects an optimization request with an empty stop list.
var ErrNoStops = errors.New("optimize: stops must be non-empty")

type Planner struct {
	resolver         *geocode.Resolver
	directions       ports.DirectionsProvider
	degradedSpeedKMH float64
}

func NewPlanner(resolver *geocode.Resolver, directions ports.DirectionsProvider, degradedSpeedKMH float64) *Planner {
	return &Planner{
		resolver:         resolver,
		directions:       directions,
		degradedSpeedKMH: degradedSpeedKMH,
	}
}

type computedRoute struct {
	order        []int
	legs         []domain.RouteLeg
	totalMeters  int
	totalSeconds int
}

// Optimize orders stops into a route leaving start at departAt.
//
// Every stop is geocoded before ordering begins. Stops whose address cannot
// be resolved are excluded from the order and reported in Unroutable; the
// rest are always ordered, degrading to straight-line estimates with
// Degraded set when the directions provider fails.
func (p *Planner) Optimize(
	ctx context.Context,
	start domain.Coordinate,
	stops []domain.JobLocation,
	departAt time.Time,
) (_ *domain.RouteOptimization, err error) {
	defer obs.Time(ctx, "route.optimize")(&err)

	if len(stops) == 0 {
		return nil, ErrNoStops
	}
	seen := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		if s.ID == "" {
			return nil, errors.New("optimize: stop with empty id")
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("optimize: duplicate stop id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	if departAt.IsZero() {
		departAt = time.Now()
	}

	routable, unroutable, err := p.resolveStops(ctx, stops)
	if err != nil {
		return nil, err
	}

	result := &domain.RouteOptimization{
		OptimizedOrder: []string{},
		Legs:           []domain.RouteLeg{},
		Unroutable:     unroutable,
		DepartAt:       departAt,
	}
	if len(routable) == 0 {
		return result, nil
	}

	points := make([]domain.Coordinate, 0, len(routable)+1)
	points = append(points, start)
	for _, sp := range routable {
		points = append(points, sp.coord)
	}

	computed, err := p.compute(ctx, newLiveMatrix(p.directions, points), routable, departAt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("directions provider unavailable, using straight-line estimates")

		computed, err = p.compute(ctx, newDegradedMatrix(points, p.degradedSpeedKMH), routable, departAt)
		if err != nil {
			return nil, fmt.Errorf("optimize: degraded plan: %w", err)
		}
		result.Degraded = true
	}

	mode := "live"
	if result.Degraded {
		mode = "degraded"
	}
	metrics.RouteOptimizations.WithLabelValues(mode).Inc()

	result.Legs = computed.legs
	result.TotalDistanceMeters = computed.totalMeters
	result.TotalDurationSeconds = computed.totalSeconds
	result.OptimizedOrder = make([]string, len(computed.order))
	for i, idx := range computed.order {
		result.OptimizedOrder[i] = routable[idx].job.ID
	}
	return result, nil
}

// resolveStops collects every stop's coordinate before any ordering starts.
// Stops already carrying coordinates skip the resolver.
func (p *Planner) resolveStops(ctx context.Context, stops []domain.JobLocation) ([]stopPoint, []domain.UnroutableStop, error) {
	var addresses []string
	for _, s := range stops {
		if s.Coordinates == nil {
			addresses = append(addresses, s.Address)
		}
	}

	outcomes := map[string]geocode.Outcome{}
	if len(addresses) > 0 {
		var err error
		outcomes, err = p.resolver.ResolveBatch(ctx, addresses)
		if err != nil {
			return nil, nil, fmt.Errorf("optimize: resolve stop addresses: %w", err)
		}
	}

	routable := make([]stopPoint, 0, len(stops))
	var unroutable []domain.UnroutableStop

	for _, s := range stops {
		if s.Coordinates != nil {
			routable = append(routable, stopPoint{job: s, coord: *s.Coordinates})
			continue
		}

		outcome := outcomes[s.Address]
		if outcome.OK() {
			routable = append(routable, stopPoint{job: s, coord: outcome.Result.Coord})
			continue
		}

		reason := ports.GeocodeNotFound
		if outcome.Failure != nil {
			reason = outcome.Failure.Reason
		}
		unroutable = append(unroutable, domain.UnroutableStop{
			JobID:   s.ID,
			Address: s.Address,
			Reason:  string(reason),
		})
	}
	return routable, unroutable, nil
}

func (p *Planner) compute(ctx context.Context, m *matrix, routable []stopPoint, departAt time.Time) (computedRoute, error) {
	order, err := orderStops(ctx, m, routable, departAt)
	if err != nil {
		return computedRoute{}, err
	}
	return assembleLegs(ctx, m, routable, order, departAt)
}

// assembleLegs walks the final order once more, materializing each leg's
// distance, traffic-adjusted duration, delay and condition.
func assembleLegs(ctx context.Context, m *matrix, stops []stopPoint, order []int, departAt time.Time) (computedRoute, error) {
	out := computedRoute{
		order: order,
		legs:  make([]domain.RouteLeg, 0, len(order)),
	}

	clock := departAt
	from := 0
	fromJobID := ""

	for _, idx := range order {
		est, err := m.leg(ctx, from, idx+1, clock)
		if err != nil {
			return computedRoute{}, err
		}

		travel := effectiveSeconds(est)
		out.legs = append(out.legs, domain.RouteLeg{
			FromJobID:           fromJobID,
			ToJobID:             stops[idx].job.ID,
			DistanceMeters:      est.DistanceMeters,
			DurationSeconds:     travel,
			TrafficDelaySeconds: trafficDelaySeconds(est),
			Traffic:             classifyTraffic(est),
		})

		out.totalMeters += est.DistanceMeters
		out.totalSeconds += travel

		clock = clock.Add(time.Duration(travel) * time.Second)
		clock = clock.Add(time.Duration(stops[idx].job.EstimatedDurationMinutes) * time.Minute)
		from = idx + 1
		fromJobID = stops[idx].job.ID
	}
	return out, nil
}
