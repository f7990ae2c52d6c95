package ports

import (
	"context"
	"time"

	"fieldservice-dispatch/internal/domain"
)

// Travel estimate for one directed leg at a fixed departure time.
// DurationInTrafficSeconds is zero when the provider returned no live
// traffic data for the leg.
type LegEstimate struct {
	DistanceMeters           int
	DurationSeconds          int
	DurationInTrafficSeconds int
}

// Contract for retrieving traffic-aware travel times.
type DirectionsProvider interface {
	// Return estimates from one origin to many destinations, departing at
	// departAt. The result is index-aligned with destinations.
	TravelTimes(ctx context.Context, origin domain.Coordinate, destinations []domain.Coordinate, departAt time.Time) ([]LegEstimate, error)
}
