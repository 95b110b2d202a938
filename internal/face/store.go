package face

import "context"

// Store is the identity store for enrolled face profiles.
// Implementations must be safe for concurrent use and must keep profiles in
// insertion order so that identification ties resolve to the earliest
// enrolled voter.
type Store interface {
	// Add inserts a new profile. It returns [ErrDuplicateVoter] if a profile
	// with the same voter id already exists. The write is all-or-nothing; a
	// failed Add leaves the store unchanged.
	Add(ctx context.Context, p BiometricProfile) error

	// List returns every enrolled profile in insertion order. The returned
	// slice is a snapshot the caller may inspect freely.
	List(ctx context.Context) ([]BiometricProfile, error)

	// Reset removes every enrolled profile unconditionally.
	Reset(ctx context.Context) error
}

// NearestNeighbor is an optional Store capability: return the single profile
// whose descriptor minimizes Euclidean distance to the query, together with
// that distance. The boolean result is false when the store is empty.
//
// [Engine.Identify] uses this pushdown when the store offers it (the
// PostgreSQL store answers it with a pgvector index scan) and falls back to a
// linear scan otherwise.
type NearestNeighbor interface {
	Nearest(ctx context.Context, descriptor []float64) (BiometricProfile, float64, bool, error)
}
