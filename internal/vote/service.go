// Package vote enforces the at-most-once voting rule on top of the ledger
// gate. The service serializes the check-then-cast pair per voter id, retries
// transient ledger failures once with backoff, and treats a ledger-side
// rejection at cast time as the authoritative already-voted outcome.
package vote

import (
	"context"
	"errors"
	"time"

	"github.com/verivote/verivote/internal/audit"
	"github.com/verivote/verivote/internal/ledger"
	"github.com/verivote/verivote/internal/observe"
	"github.com/verivote/verivote/internal/resilience"
)

// defaultRetryBackoff is the pause before the single retry of a transient
// ledger failure.
const defaultRetryBackoff = 500 * time.Millisecond

// Service gates the one-time voting action behind the ledger. It is safe for
// concurrent use; requests for distinct voter ids proceed fully in parallel.
type Service struct {
	gate    ledger.Gate
	breaker *resilience.CircuitBreaker
	metrics *observe.Metrics
	trail   *audit.Trail
	backoff time.Duration
	locks   *keyedMutex
}

// Option configures a [Service].
type Option func(*Service)

// WithBreaker wraps every ledger round-trip in the given circuit breaker.
// The breaker should be built with a Failure predicate that exempts
// [ledger.ErrAlreadyVoted]; see [NewBreaker].
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *Service) { s.breaker = cb }
}

// WithMetrics attaches observability instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit appends every vote decision to the given trail. A write failure
// is logged but never blocks the vote itself.
func WithAudit(t *audit.Trail) Option {
	return func(s *Service) { s.trail = t }
}

// WithRetryBackoff overrides the pause before the single transient-failure
// retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) { s.backoff = d }
}

// NewService creates a vote [Service] over the given gate.
func NewService(gate ledger.Gate, opts ...Option) *Service {
	s := &Service{
		gate:    gate,
		backoff: defaultRetryBackoff,
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewBreaker builds a circuit breaker tuned for the ledger boundary: only
// transient unavailability counts as a failure. An already-voted rejection is
// the ledger answering correctly and must not trip the breaker.
func NewBreaker() *resilience.CircuitBreaker {
	return resilience.New(resilience.Config{
		Name: "ledger",
		Failure: func(err error) bool {
			return err != nil && !errors.Is(err, ledger.ErrAlreadyVoted)
		},
	})
}

// HasVoted reports whether the ledger has recorded a vote for voterID. The
// result is never cached; callers must re-check on every vote attempt.
func (s *Service) HasVoted(ctx context.Context, voterID uint64) (bool, error) {
	var voted bool
	err := s.withRetry(ctx, "check", func() error {
		var err error
		voted, err = s.gate.CheckVoted(ctx, voterID)
		return err
	})
	return voted, err
}

// Cast submits the vote for voterID. The check and the cast run under a
// per-voter lock so two concurrent requests for the same voter cannot both
// slip past the check; even if the process loses that race to another
// instance, the ledger's own rejection is surfaced as
// [ledger.ErrAlreadyVoted].
func (s *Service) Cast(ctx context.Context, voterID uint64) (ledger.Receipt, error) {
	s.locks.Lock(voterID)
	defer s.locks.Unlock(voterID)

	voted, err := s.HasVoted(ctx, voterID)
	if err != nil {
		s.metrics.CountVote(ctx, "error")
		s.record(ctx, audit.Event{VoterID: voterID, Action: "cast", Outcome: "error", Detail: err.Error()})
		return ledger.Receipt{}, err
	}
	if voted {
		s.metrics.CountVote(ctx, "already_voted")
		s.record(ctx, audit.Event{VoterID: voterID, Action: "cast", Outcome: "already_voted"})
		return ledger.Receipt{}, ledger.ErrAlreadyVoted
	}

	var receipt ledger.Receipt
	err = s.withRetry(ctx, "cast", func() error {
		var err error
		receipt, err = s.gate.CastVote(ctx, voterID)
		return err
	})
	switch {
	case errors.Is(err, ledger.ErrAlreadyVoted):
		s.metrics.CountVote(ctx, "already_voted")
		s.record(ctx, audit.Event{VoterID: voterID, Action: "cast", Outcome: "already_voted", Detail: "rejected by the ledger at cast time"})
		return ledger.Receipt{}, err
	case err != nil:
		s.metrics.CountVote(ctx, "error")
		s.record(ctx, audit.Event{VoterID: voterID, Action: "cast", Outcome: "error", Detail: err.Error()})
		return ledger.Receipt{}, err
	}

	s.metrics.CountVote(ctx, "cast")
	s.record(ctx, audit.Event{VoterID: voterID, Action: "cast", Outcome: "cast", Tx: receipt.TxHash})
	return receipt, nil
}

// record appends one event to the audit trail, if one is configured.
func (s *Service) record(ctx context.Context, e audit.Event) {
	if err := s.trail.Record(e); err != nil {
		observe.Logger(ctx).Warn("audit trail write failed", "error", err)
	}
}

// withRetry runs one ledger round-trip through the breaker, retrying exactly
// once after a backoff when the failure was transient. Terminal outcomes
// (already voted, validation) are never retried.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	attempt := func() error {
		start := time.Now()
		var err error
		if s.breaker != nil {
			err = s.breaker.Execute(fn)
		} else {
			err = fn()
		}
		s.metrics.RecordLedger(ctx, op, time.Since(start))
		return err
	}

	err := attempt()
	if !errors.Is(err, ledger.ErrUnavailable) {
		return err
	}

	select {
	case <-time.After(s.backoff):
	case <-ctx.Done():
		return ctx.Err()
	}
	return attempt()
}
