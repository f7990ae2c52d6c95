package domain

import "time"

// InspectionRecord is a vehicle inspection performed by a technician.
// Records are produced by the external inspection workflow and are
// read-only here; a completed same-day inspection is what qualifies a
// technician for auto-connect.
type InspectionRecord struct {
	UserID         string
	VehicleID      string
	InspectionDate Date
	CompletedAt    *time.Time
}

// Completed reports whether the inspection was finished, not merely started.
func (r InspectionRecord) Completed() bool { return r.CompletedAt != nil }

// VehicleProjectLink ties a vehicle to a project in upstream scheduling
// data. Auto-connect matches technicians to jobs by joining through these
// links; it performs no cross-technician optimization.
type VehicleProjectLink struct {
	VehicleID string
	ProjectID int64
}

// VehicleJobAssignment connects a technician and their inspected vehicle to
// a project for one day. At most one active assignment may exist per
// (UserID, ProjectID, AssignmentDate); reassignment deactivates the old row
// rather than deleting it.
type VehicleJobAssignment struct {
	ID             string
	UserID         string
	VehicleID      string
	ProjectID      int64
	InspectionDate Date
	AssignmentDate Date
	IsActive       bool
	Notes          string
	CreatedAt      time.Time
	DeactivatedAt  *time.Time
}

// SkipReason explains why auto-connect produced no assignment for a
// technician.
type SkipReason string

const (
	SkipAlreadyAssigned      SkipReason = "already_assigned"
	SkipNoMatchingVehicle    SkipReason = "no_matching_vehicle"
	SkipJobAlreadyAssigned   SkipReason = "job_already_assigned"
	SkipInspectionIncomplete SkipReason = "inspection_incomplete"
)

// SkippedTechnician is one per-technician skip entry in an auto-connect
// result.
type SkippedTechnician struct {
	UserID string
	Reason SkipReason
}

// AutoConnectResult reports exactly what an auto-connect run did: every row
// it created and every candidate it passed over, with the reason. Callers
// never get a bare success flag.
type AutoConnectResult struct {
	Created []VehicleJobAssignment
	Skipped []SkippedTechnician
}

// AssignmentDetail is an assignment joined with the display fields the
// dispatcher UI shows alongside it.
type AssignmentDetail struct {
	VehicleJobAssignment
	UserName     string
	VehicleLabel string
	ProjectName  string
}

// TechnicianCandidate is a user with a same-day inspection, as listed in the
// auto-connect confirmation dialog.
type TechnicianCandidate struct {
	UserID       string
	UserName     string
	VehicleID    string
	VehicleLabel string
	CompletedAt  *time.Time
}
