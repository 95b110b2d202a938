package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/verivote/verivote/pkg/identity"
)

// Store is the repository of in-progress and complete voice enrollments.
// Implementations must be safe for concurrent use and must keep enrollments
// in insertion order so that identification ties resolve to the earliest
// enrolled voter.
type Store interface {
	// Append records one more utterance for the given voter, creating the
	// enrollment on first call. Demographic fields are overwritten
	// unconditionally (last write wins) and the aggregate template is
	// recomputed once the enrollment is complete. The whole mutation is
	// atomic per record; the returned snapshot reflects the state after the
	// append.
	Append(ctx context.Context, voterID string, profile identity.Profile, utt Utterance) (Enrollment, error)

	// List returns a snapshot of every enrollment in insertion order.
	List(ctx context.Context) ([]Enrollment, error)
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// MemStore is the in-memory [Store]. Voice enrollment state lives for the
// lifetime of the process; there is no durable backing and no reset
// operation.
type MemStore struct {
	mu          sync.Mutex
	enrollments map[string]*Enrollment
	order       []string
	frameDim    int // established by the first stored frame, 0 until then
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		enrollments: make(map[string]*Enrollment),
	}
}

// Append implements [Store.Append].
func (s *MemStore) Append(ctx context.Context, voterID string, profile identity.Profile, utt Utterance) (Enrollment, error) {
	id := identity.NormalizeVoterID(voterID)
	if id == "" {
		return Enrollment{}, fmt.Errorf("%w: voterId", ErrMissingField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate against the deployment-wide frame dimension before touching
	// any state, so a rejected append leaves the record untouched.
	if err := ValidateUtterance(utt, s.frameDim); err != nil {
		return Enrollment{}, err
	}
	if s.frameDim == 0 {
		s.frameDim = len(utt[0])
	}

	e, ok := s.enrollments[id]
	if !ok {
		e = &Enrollment{VoterID: id}
		s.enrollments[id] = e
		s.order = append(s.order, id)
	}

	e.Profile = profile
	e.Utterances = append(e.Utterances, cloneUtterance(utt))
	e.UpdatedAt = time.Now().UTC()
	if e.Complete() {
		e.RecomputeTemplate()
	}

	return snapshot(e), nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Enrollment, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, snapshot(s.enrollments[id]))
	}
	return result, nil
}

// snapshot copies an enrollment so callers can read it without holding the
// store lock. Frame slices are shared; they are append-only and never
// mutated in place.
func snapshot(e *Enrollment) Enrollment {
	out := *e
	out.Utterances = make([]Utterance, len(e.Utterances))
	copy(out.Utterances, e.Utterances)
	return out
}

func cloneUtterance(utt Utterance) Utterance {
	out := make(Utterance, len(utt))
	for i, frame := range utt {
		f := make(Frame, len(frame))
		copy(f, frame)
		out[i] = f
	}
	return out
}
