package domain

import (
	"strings"
	"time"
)

// Priority orders jobs when two candidate routes are otherwise equal.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank maps a priority to a comparable weight; larger means more urgent.
// Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// JobStatus is the scheduling lifecycle state of a job.
type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
)

// JobLocation is a single scheduled work stop. Rows are created and updated
// by the scheduling UI; this subsystem reads them to build routes and
// assignments. Coordinates start nil and are resolved lazily against the
// normalized address.
type JobLocation struct {
	ID                       string
	ProjectID                int64
	Address                  string
	Coordinates              *Coordinate
	ScheduledTime            time.Time
	EstimatedDurationMinutes int
	AssignedTechnicianID     string
	Priority                 Priority
	Status                   JobStatus
}

// NormalizeAddress produces the canonical cache key for a postal address:
// lower-cased, with runs of whitespace collapsed to single spaces.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
