package domain

import "time"

// TrafficCondition classifies how a leg's live travel time compares to its
// typical travel time.
type TrafficCondition string

const (
	TrafficNormal   TrafficCondition = "normal"
	TrafficLight    TrafficCondition = "light"
	TrafficModerate TrafficCondition = "moderate"
	TrafficHeavy    TrafficCondition = "heavy"
	TrafficUnknown  TrafficCondition = "unknown"
)

// RouteLeg is the directed edge between two consecutive stops in an
// optimized route. FromJobID is empty on the leg leaving the start
// location. DurationSeconds already includes TrafficDelaySeconds.
type RouteLeg struct {
	FromJobID           string
	ToJobID             string
	DistanceMeters      int
	DurationSeconds     int
	TrafficDelaySeconds int
	Traffic             TrafficCondition
}

// UnroutableStop reports a stop that was excluded from ordering because its
// address could not be resolved to coordinates.
type UnroutableStop struct {
	JobID   string
	Address string
	Reason  string
}

// RouteOptimization is the ordered, derived plan for one technician's day.
// It is recomputed on demand and never persisted.
//
// OptimizedOrder is a permutation of the geocodable input job IDs, and
// len(Legs) == len(OptimizedOrder): one leg from the start location plus one
// per remaining consecutive stop pair. Degraded marks a plan computed from
// straight-line distances because the directions provider was unavailable;
// every leg of a degraded plan carries TrafficUnknown.
type RouteOptimization struct {
	OptimizedOrder       []string
	Legs                 []RouteLeg
	TotalDistanceMeters  int
	TotalDurationSeconds int
	Degraded             bool
	Unroutable           []UnroutableStop
	DepartAt             time.Time
}
