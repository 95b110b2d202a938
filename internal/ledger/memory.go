package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Gate = (*MemoryGate)(nil)

// MemoryGate is an in-memory [Gate] for tests and demo runs: a voted-set
// behind a mutex plus synthetic transaction ids. Like the real ledger, the
// check-and-record inside [MemoryGate.CastVote] is atomic, so the gate itself
// never admits a double vote.
type MemoryGate struct {
	mu    sync.Mutex
	voted map[uint64]string // voterID -> tx id
	casts int
}

// NewMemoryGate returns an empty [MemoryGate].
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{voted: make(map[uint64]string)}
}

// CheckVoted implements [Gate.CheckVoted].
func (g *MemoryGate) CheckVoted(ctx context.Context, voterID uint64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, voted := g.voted[voterID]
	return voted, nil
}

// CastVote implements [Gate.CastVote].
func (g *MemoryGate) CastVote(ctx context.Context, voterID uint64) (Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, voted := g.voted[voterID]; voted {
		return Receipt{}, ErrAlreadyVoted
	}

	tx := "0x" + uuid.NewString()
	g.voted[voterID] = tx
	g.casts++
	return Receipt{TxHash: tx}, nil
}

// Casts returns the number of successfully recorded votes. Test helper.
func (g *MemoryGate) Casts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.casts
}

// Ping always succeeds; the gate is process-local.
func (g *MemoryGate) Ping(ctx context.Context) error {
	return nil
}
