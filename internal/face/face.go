// Package face implements face-based voter identification: enrollment of
// 128-dimension face descriptors into an identity store and nearest-neighbor
// identification against every enrolled profile.
//
// The package follows a repository split: [Store] defines the identity store
// contract, [FileStore] keeps the original JSON-document-on-disk layout with
// read-through reload, and [PostgresStore] keeps descriptors in a pgvector
// column with the nearest-neighbor search pushed down to the database.
// [Engine] composes a store with the matching rules.
package face

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/verivote/verivote/pkg/identity"
)

const (
	// DescriptorDim is the required length of a face descriptor vector.
	DescriptorDim = 128

	// MatchThreshold is the Euclidean distance below which (strictly) a
	// nearest neighbor counts as an identification. Hand-tuned for the
	// face-api.js descriptor space; do not assume it generalizes to other
	// feature extractors.
	MatchThreshold = 0.55
)

var (
	// ErrMissingField indicates a required request field was absent.
	ErrMissingField = errors.New("face: missing required field")

	// ErrInvalidDescriptor indicates a descriptor with the wrong dimension or
	// non-numeric elements.
	ErrInvalidDescriptor = errors.New("face: invalid descriptor")

	// ErrDuplicateVoter indicates a voter id that is already enrolled.
	// Face descriptors are immutable once stored; re-enrollment is rejected.
	ErrDuplicateVoter = errors.New("face: voter already enrolled")
)

// BiometricProfile is one enrolled voter: the identifying descriptor plus the
// demographic attributes captured at enrollment time.
type BiometricProfile struct {
	VoterID    string    `json:"voterId"`
	Descriptor []float64 `json:"descriptor"`
	identity.Profile
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Match is the transient result of one identification request. It is never
// persisted. A zero Match with Matched == false means no enrolled profile was
// close enough.
type Match struct {
	Matched  bool
	VoterID  string
	Distance float64
	Profile  identity.Profile
}

// ValidateDescriptor checks that d has exactly [DescriptorDim] finite numeric
// elements. NaN and infinite values are rejected; they cannot come out of a
// well-formed feature extractor and would poison every distance comparison.
func ValidateDescriptor(d []float64) error {
	if len(d) != DescriptorDim {
		return fmt.Errorf("%w: expected %d elements, got %d", ErrInvalidDescriptor, DescriptorDim, len(d))
	}
	for i, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: element %d is not a finite number", ErrInvalidDescriptor, i)
		}
	}
	return nil
}
