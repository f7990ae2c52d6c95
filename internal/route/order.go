package route

import (
	"context"
	"math"
	"sort"
	"time"

	"fieldservice-dispatch/internal/domain"
)

// Orderings whose total travel time differs by no more than this are
// materially equal and ranked by priority, then scheduled time.
const tieEpsilonSeconds = 60

// Epsilon acceptance is not strictly monotonic in cost, so the improvement
// loop is bounded.
const maxTwoOptPasses = 32

// stopPoint pairs a routable job with its resolved coordinate. Index i in
// the slice corresponds to matrix point i+1; point 0 is the start.
type stopPoint struct {
	job   domain.JobLocation
	coord domain.Coordinate
}

// orderStops produces the visit order as indices into stops. The result is
// deterministic for identical inputs.
func orderStops(ctx context.Context, m *matrix, stops []stopPoint, departAt time.Time) ([]int, error) {
	if len(stops) == 1 {
		return []int{0}, nil
	}

	order, err := cheapestInsertion(ctx, m, stops, departAt)
	if err != nil {
		return nil, err
	}
	return improveTwoOpt(ctx, m, stops, order, departAt)
}

// routeCost simulates driving the order and returns total traffic-adjusted
// travel seconds. The clock advances by each leg's travel time plus the
// stop's estimated service time, so later legs are costed at their
// projected departure times.
func routeCost(ctx context.Context, m *matrix, stops []stopPoint, order []int, departAt time.Time) (int, error) {
	total := 0
	clock := departAt
	from := 0

	for _, idx := range order {
		est, err := m.leg(ctx, from, idx+1, clock)
		if err != nil {
			return 0, err
		}

		travel := effectiveSeconds(est)
		total += travel
		clock = clock.Add(time.Duration(travel) * time.Second)
		clock = clock.Add(time.Duration(stops[idx].job.EstimatedDurationMinutes) * time.Minute)
		from = idx + 1
	}
	return total, nil
}

// cheapestInsertion builds an initial order by repeatedly inserting the
// stop/position pair that adds the least total travel time. Candidates are
// scanned in a fixed order (priority desc, scheduledTime asc, id asc, then
// position), so exact cost ties resolve deterministically; priority
// preference among near-equal orders is improveTwoOpt's job.
func cheapestInsertion(ctx context.Context, m *matrix, stops []stopPoint, departAt time.Time) ([]int, error) {
	remaining := seedOrder(stops)
	order := make([]int, 0, len(stops))

	for len(remaining) > 0 {
		bestStop := -1
		bestPos := 0
		bestRemaining := 0
		bestCost := math.MaxInt

		for ri, s := range remaining {
			for pos := 0; pos <= len(order); pos++ {
				cand := insertAt(order, s, pos)
				cost, err := routeCost(ctx, m, stops, cand, departAt)
				if err != nil {
					return nil, err
				}
				if cost < bestCost {
					bestCost = cost
					bestStop = s
					bestPos = pos
					bestRemaining = ri
				}
			}
		}

		order = insertAt(order, bestStop, bestPos)
		remaining = append(remaining[:bestRemaining], remaining[bestRemaining+1:]...)
	}
	return order, nil
}

// improveTwoOpt applies 2-opt segment reversals until no candidate is
// either strictly faster or materially equal with a preferable
// priority/schedule order.
func improveTwoOpt(ctx context.Context, m *matrix, stops []stopPoint, order []int, departAt time.Time) ([]int, error) {
	n := len(order)
	if n < 2 {
		return order, nil
	}

	best := append([]int(nil), order...)
	bestCost, err := routeCost(ctx, m, stops, best, departAt)
	if err != nil {
		return nil, err
	}

	for pass := 0; pass < maxTwoOptPasses; pass++ {
		improved := false

		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				cost, err := routeCost(ctx, m, stops, cand, departAt)
				if err != nil {
					return nil, err
				}

				switch {
				case cost < bestCost-tieEpsilonSeconds:
					best, bestCost = cand, cost
					improved = true
				case abs(cost-bestCost) <= tieEpsilonSeconds && orderLess(stops, cand, best):
					best, bestCost = cand, cost
					improved = true
				}
			}
		}

		if !improved {
			break
		}
	}
	return best, nil
}

// twoOptSwap reverses the segment order[i..k].
func twoOptSwap(order []int, i, k int) []int {
	out := make([]int, len(order))
	copy(out, order[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = order[j]
		pos++
	}
	copy(out[pos:], order[k+1:])
	return out
}

// seedOrder lists stop indices by priority desc, scheduledTime asc, id asc.
func seedOrder(stops []stopPoint) []int {
	idx := make([]int, len(stops))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return stopLess(stops[idx[a]].job, stops[idx[b]].job)
	})
	return idx
}

// orderLess ranks two orderings of the same stop set: at the first
// differing position, the ordering holding the preferable job there wins.
func orderLess(stops []stopPoint, a, b []int) bool {
	for p := range a {
		if a[p] == b[p] {
			continue
		}
		return stopLess(stops[a[p]].job, stops[b[p]].job)
	}
	return false
}

func stopLess(a, b domain.JobLocation) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra > rb
	}
	if !a.ScheduledTime.Equal(b.ScheduledTime) {
		return a.ScheduledTime.Before(b.ScheduledTime)
	}
	return a.ID < b.ID
}

func insertAt(order []int, stop, pos int) []int {
	out := make([]int, 0, len(order)+1)
	out = append(out, order[:pos]...)
	out = append(out, stop)
	out = append(out, order[pos:]...)
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
