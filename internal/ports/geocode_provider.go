package ports

import (
	"context"
	"fmt"

	"fieldservice-dispatch/internal/domain"
)

// Confidence tier of a resolved coordinate.
type GeocodeConfidence string

const (
	ConfidenceExact       GeocodeConfidence = "exact"
	ConfidenceApproximate GeocodeConfidence = "approximate"
)

// A resolved coordinate together with the provider's confidence tier.
type GeocodeResult struct {
	Coord      domain.Coordinate
	Confidence GeocodeConfidence
}

// Why a geocode lookup produced no usable coordinate.
type GeocodeFailureReason string

const (
	GeocodeNotFound      GeocodeFailureReason = "not_found"
	GeocodeProviderError GeocodeFailureReason = "provider_error"
	GeocodeRateLimited   GeocodeFailureReason = "rate_limited"
)

// GeocodeFailure is the error adapters return when an address cannot be
// resolved. Callers branch on Reason to pick a fallback.
type GeocodeFailure struct {
	Address string
	Reason  GeocodeFailureReason
	Err     error
}

func (f *GeocodeFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("geocode %q: %s: %v", f.Address, f.Reason, f.Err)
	}
	return fmt.Sprintf("geocode %q: %s", f.Address, f.Reason)
}

func (f *GeocodeFailure) Unwrap() error { return f.Err }

// Contract for resolving a postal address to a coordinate.
type GeocodeProvider interface {
	// Resolve a free-text address. Lookup failures are returned as
	// *GeocodeFailure.
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
}
