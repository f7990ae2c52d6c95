package ports

import "context"

// Shared address→coordinate cache, keyed by normalized address. Entries do
// not expire during an optimization run; refresh happens out-of-band.
type GeocodeCache interface {
	// Return the entries present for the given keys; absent keys are
	// simply missing from the map.
	GetMany(ctx context.Context, keys []string) (map[string]GeocodeResult, error)
	// Store resolved entries under their normalized keys.
	PutMany(ctx context.Context, entries map[string]GeocodeResult) error
}
