package dto

import "time"

type RouteLegResponse struct {
	FromJobID           string `json:"from_job_id"`
	ToJobID             string `json:"to_job_id"`
	DistanceMeters      int    `json:"distance_meters"`
	DurationSeconds     int    `json:"duration_seconds"`
	TrafficDelaySeconds int    `json:"traffic_delay_seconds"`
	TrafficCondition    string `json:"traffic_condition"`
}

type UnroutableStopResponse struct {
	JobID   string `json:"job_id"`
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

type RouteOptimizationResponse struct {
	OptimizedOrder       []string                 `json:"optimized_order"`
	Legs                 []RouteLegResponse       `json:"legs"`
	TotalDistanceMeters  int                      `json:"total_distance_meters"`
	TotalDurationSeconds int                      `json:"total_duration_seconds"`
	Degraded             bool                     `json:"degraded"`
	Unroutable           []UnroutableStopResponse `json:"unroutable"`
	DepartAt             time.Time                `json:"depart_at"`
}
