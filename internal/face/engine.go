package face

import (
	"context"
	"fmt"
	"time"

	"github.com/verivote/verivote/internal/observe"
	"github.com/verivote/verivote/pkg/identity"
	"github.com/verivote/verivote/pkg/vectormath"
)

// Engine performs face enrollment and identification against a [Store].
// It is safe for concurrent use as long as the underlying store is.
type Engine struct {
	store   Store
	index   *Index
	metrics *observe.Metrics
}

// Option configures an [Engine].
type Option func(*Engine)

// WithIndex attaches an approximate nearest-neighbor [Index] that replaces
// the linear scan during identification. Call [Engine.WarmIndex] after
// construction to seed it from the store.
func WithIndex(ix *Index) Option {
	return func(e *Engine) { e.index = ix }
}

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

// Enroll validates and stores a new face profile, returning the stored voter
// id. A voter id that is already enrolled is rejected with
// [ErrDuplicateVoter]; stored descriptors are immutable.
func (e *Engine) Enroll(ctx context.Context, voterID string, descriptor []float64, profile identity.Profile) (string, error) {
	id := identity.NormalizeVoterID(voterID)
	if id == "" {
		return "", fmt.Errorf("%w: voterId", ErrMissingField)
	}
	if len(descriptor) == 0 {
		return "", fmt.Errorf("%w: descriptor", ErrMissingField)
	}
	if err := ValidateDescriptor(descriptor); err != nil {
		return "", err
	}

	p := BiometricProfile{
		VoterID:    id,
		Descriptor: descriptor,
		Profile:    profile,
		EnrolledAt: time.Now().UTC(),
	}
	if err := e.store.Add(ctx, p); err != nil {
		e.metrics.CountEnrollment(ctx, "face", "error")
		return "", err
	}
	if e.index != nil {
		e.index.Add(p)
	}

	e.metrics.CountEnrollment(ctx, "face", "ok")
	return id, nil
}

// Identify resolves the enrolled voter whose descriptor is nearest to the
// query. The result is a match only when the minimum Euclidean distance is
// strictly below [MatchThreshold]; otherwise Matched is false. An empty store
// is never a match.
func (e *Engine) Identify(ctx context.Context, descriptor []float64) (Match, error) {
	if err := ValidateDescriptor(descriptor); err != nil {
		return Match{}, err
	}

	start := time.Now()
	best, distance, found, err := e.nearest(ctx, descriptor)
	if err != nil {
		return Match{}, err
	}
	e.metrics.RecordIdentify(ctx, "face", time.Since(start), found && distance < MatchThreshold)

	if !found || distance >= MatchThreshold {
		return Match{}, nil
	}
	return Match{
		Matched:  true,
		VoterID:  best.VoterID,
		Distance: distance,
		Profile:  best.Profile,
	}, nil
}

// nearest picks the closest enrolled profile: via the approximate index when
// configured, via the store's own pushdown when offered, and by a full linear
// scan otherwise. The scan keeps the earliest enrolled profile on ties.
func (e *Engine) nearest(ctx context.Context, descriptor []float64) (BiometricProfile, float64, bool, error) {
	if e.index != nil {
		p, dist, ok := e.index.Nearest(descriptor)
		return p, dist, ok, nil
	}
	if nn, ok := e.store.(NearestNeighbor); ok {
		return nn.Nearest(ctx, descriptor)
	}

	profiles, err := e.store.List(ctx)
	if err != nil {
		return BiometricProfile{}, 0, false, err
	}

	var (
		best     BiometricProfile
		bestDist float64
		found    bool
	)
	for _, p := range profiles {
		dist, err := vectormath.EuclideanDistance(descriptor, p.Descriptor)
		if err != nil {
			// A stored profile with a malformed descriptor cannot match.
			continue
		}
		if !found || dist < bestDist {
			best, bestDist, found = p, dist, true
		}
	}
	return best, bestDist, found, nil
}

// WarmIndex seeds the configured approximate index from the store. It is a
// no-op when no index is attached.
func (e *Engine) WarmIndex(ctx context.Context) error {
	if e.index == nil {
		return nil
	}
	profiles, err := e.store.List(ctx)
	if err != nil {
		return err
	}
	e.index.Rebuild(profiles)
	return nil
}

// Reset clears the entire face store unconditionally. The reset is global,
// not per voter.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.store.Reset(ctx); err != nil {
		return err
	}
	if e.index != nil {
		e.index.Clear()
	}
	return nil
}
