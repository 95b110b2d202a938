// Package identity holds the shared voter profile type used by the face and
// voice match engines and the helpers that normalize voter identifiers at the
// system boundary.
package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile carries the demographic attributes captured at enrollment time.
// All fields are free-text as submitted by the capture UI.
type Profile struct {
	Name    string `json:"name" yaml:"name"`
	Age     string `json:"age" yaml:"age"`
	Gender  string `json:"gender" yaml:"gender"`
	Address string `json:"address" yaml:"address"`
}

// NormalizeVoterID canonicalizes a voter identifier for storage and lookup.
// Identifiers are compared as trimmed strings regardless of how the caller
// encoded them.
func NormalizeVoterID(id string) string {
	return strings.TrimSpace(id)
}

// NumericVoterID parses a voter identifier into the numeric form required by
// the vote ledger. The ledger keys its "already voted" record by an unsigned
// integer, shared across every authentication modality.
func NumericVoterID(id string) (uint64, error) {
	n, err := strconv.ParseUint(NormalizeVoterID(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identity: voter id %q is not numeric: %w", id, err)
	}
	return n, nil
}
