package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/verivote/verivote/internal/observe"
	"github.com/verivote/verivote/pkg/identity"
	"github.com/verivote/verivote/pkg/vectormath"
)

// Engine performs voice enrollment and identification against a [Store].
// It is safe for concurrent use as long as the underlying store is.
type Engine struct {
	store   Store
	metrics *observe.Metrics
}

// Option configures an [Engine].
type Option func(*Engine)

// WithMetrics attaches observability instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an [Engine] over the given store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enroll records one utterance for the given voter. Unlike face enrollment
// there is no duplicate rejection: repeated calls for the same voter append
// samples and overwrite the demographic fields. The result echoes the current
// profile and reports either "complete" or how many samples are still needed.
func (e *Engine) Enroll(ctx context.Context, voterID string, utt Utterance, profile identity.Profile) (EnrollResult, error) {
	id := identity.NormalizeVoterID(voterID)
	if id == "" {
		return EnrollResult{}, fmt.Errorf("%w: voterId", ErrMissingField)
	}
	if len(utt) == 0 {
		return EnrollResult{}, fmt.Errorf("%w: utterance", ErrMissingField)
	}

	enr, err := e.store.Append(ctx, id, profile, utt)
	if err != nil {
		e.metrics.CountEnrollment(ctx, "voice", "error")
		return EnrollResult{}, err
	}

	e.metrics.CountEnrollment(ctx, "voice", "ok")
	return EnrollResult{
		VoterID: enr.VoterID,
		Status:  enr.Status(),
		Samples: len(enr.Utterances),
		Profile: enr.Profile,
	}, nil
}

// Identify resolves the enrolled voter holding the stored utterance with the
// smallest DTW distance to the query. Every utterance of every voter is
// compared; the aggregate template is not used for matching. The result is a
// match only when the global minimum is strictly below [MatchThreshold], in
// which case Similarity is 1 - distance/threshold.
func (e *Engine) Identify(ctx context.Context, query Utterance) (Match, error) {
	if len(query) == 0 {
		return Match{}, ErrNoVoiceData
	}

	start := time.Now()
	enrollments, err := e.store.List(ctx)
	if err != nil {
		return Match{}, err
	}

	q := toSequence(query)
	var (
		best     Enrollment
		bestDist float64
		found    bool
	)
	for _, enr := range enrollments {
		for _, utt := range enr.Utterances {
			dist := vectormath.DTWDistance(q, toSequence(utt))
			if !found || dist < bestDist {
				best, bestDist, found = enr, dist, true
			}
		}
	}

	matched := found && bestDist < MatchThreshold
	e.metrics.RecordIdentify(ctx, "voice", time.Since(start), matched)

	if !matched {
		return Match{}, nil
	}
	return Match{
		Matched:    true,
		VoterID:    best.VoterID,
		Distance:   bestDist,
		Similarity: 1 - bestDist/MatchThreshold,
		Profile:    best.Profile,
	}, nil
}

func toSequence(utt Utterance) [][]float64 {
	seq := make([][]float64, len(utt))
	for i, frame := range utt {
		seq[i] = frame
	}
	return seq
}
