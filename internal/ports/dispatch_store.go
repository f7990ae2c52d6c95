package ports

import (
	"context"
	"errors"

	"fieldservice-dispatch/internal/domain"
)

var (
	// ErrNotFound signals that no row matched the given id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAssignment signals a violation of the one-active-
	// assignment-per-(user, project, date) rule.
	ErrDuplicateAssignment = errors.New("duplicate active assignment")
)

// Port: persistence boundary for vehicle job assignments. Implementations
// must enforce active-tuple uniqueness themselves; the matcher's in-memory
// checks are an optimization, not the guarantee.
type DispatchStore interface {
	// Active assignments for the date.
	ListActive(ctx context.Context, date domain.Date) ([]domain.VehicleJobAssignment, error)
	// Active assignments joined with user/vehicle/project display fields.
	ListActiveDetailed(ctx context.Context, date domain.Date) ([]domain.AssignmentDetail, error)
	// Insert all assignments in one transaction and return the committed
	// ids. A uniqueness conflict fails the whole batch with
	// ErrDuplicateAssignment.
	CreateBatch(ctx context.Context, assignments []domain.VehicleJobAssignment) ([]string, error)
	// Soft-deactivate one assignment. Returns ErrNotFound if no active
	// row has the id.
	Deactivate(ctx context.Context, id string) error
}
