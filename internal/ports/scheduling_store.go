package ports

import (
	"context"

	"fieldservice-dispatch/internal/domain"
)

// Port: read-only view of upstream scheduling data (jobs, inspections,
// vehicle↔project links). This subsystem never writes through it.
type SchedulingStore interface {
	// Jobs scheduled on the given date, any status.
	ListJobsForDate(ctx context.Context, date domain.Date) ([]domain.JobLocation, error)
	// Jobs scheduled on the given date for projects linked to one vehicle.
	ListJobsForVehicle(ctx context.Context, vehicleID string, date domain.Date) ([]domain.JobLocation, error)
	// All inspection records for the date, completed or not.
	ListInspections(ctx context.Context, date domain.Date) ([]domain.InspectionRecord, error)
	// Vehicle↔project links for the given vehicles.
	ListVehicleProjectLinks(ctx context.Context, vehicleIDs []string) ([]domain.VehicleProjectLink, error)
	// Technicians with a completed inspection on the date, joined with
	// user and vehicle display fields.
	ListTechnicianCandidates(ctx context.Context, date domain.Date) ([]domain.TechnicianCandidate, error)
}
