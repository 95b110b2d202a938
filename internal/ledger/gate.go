// Package ledger defines the boundary to the external "already voted" ledger
// and its implementations: [EthGate] speaks to the deployed voting contract
// over an Ethereum JSON-RPC endpoint, and [MemoryGate] is a process-local
// stand-in for tests and demo runs.
//
// The ledger is the sole source of truth for whether a voter has voted. The
// core never caches that state; every vote attempt re-checks it.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyVoted is the ledger-confirmed prior-vote outcome. It is
	// authoritative and terminal; callers must never retry it.
	ErrAlreadyVoted = errors.New("ledger: voter has already voted")

	// ErrUnavailable wraps transient transport failures (network errors,
	// timeouts). One retry with backoff is reasonable.
	ErrUnavailable = errors.New("ledger: temporarily unavailable")
)

// Receipt is the ledger's acknowledgement of a cast vote.
type Receipt struct {
	// TxHash identifies the vote transaction on the ledger.
	TxHash string `json:"tx"`

	// BlockNumber is the block the transaction was included in, when known.
	BlockNumber uint64 `json:"block_number,omitempty"`
}

// Gate is the capability boundary to the vote ledger. Voter identifiers are
// numeric on this boundary; every authentication modality resolves to the
// same numeric id space, so one gate enforces one at-most-once rule.
//
// Implementations must be safe for concurrent use. CheckVoted and CastVote
// are network round-trips; both honor context cancellation and deadlines.
type Gate interface {
	// CheckVoted reports whether the ledger has recorded a vote for voterID.
	CheckVoted(ctx context.Context, voterID uint64) (bool, error)

	// CastVote submits the vote transaction for voterID. The ledger is the
	// sole authority on whether the vote succeeds: a ledger-side rejection is
	// surfaced as [ErrAlreadyVoted], not a generic failure, because the check
	// and the cast are not atomic across concurrent requests.
	CastVote(ctx context.Context, voterID uint64) (Receipt, error)
}
