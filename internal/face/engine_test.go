package face_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/verivote/verivote/internal/face"
	"github.com/verivote/verivote/pkg/identity"
)

// descriptor returns a 128-dim vector of the given constant value.
func descriptor(v float64) []float64 {
	d := make([]float64, face.DescriptorDim)
	for i := range d {
		d[i] = v
	}
	return d
}

// offsetDescriptor returns the zero vector with the first element set, so the
// Euclidean distance to the zero vector is exactly first.
func offsetDescriptor(first float64) []float64 {
	d := make([]float64, face.DescriptorDim)
	d[0] = first
	return d
}

func newEngine(t *testing.T, opts ...face.Option) *face.Engine {
	t.Helper()
	store := face.NewFileStore(filepath.Join(t.TempDir(), "faces.json"))
	return face.NewEngine(store, opts...)
}

func TestEngineEnroll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stores and returns the normalized id", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		got, err := e.Enroll(ctx, "  101  ", descriptor(0.1), identity.Profile{Name: "Asha"})
		if err != nil {
			t.Fatalf("Enroll: unexpected error: %v", err)
		}
		if got != "101" {
			t.Fatalf("Enroll: expected id %q, got %q", "101", got)
		}
	})

	t.Run("missing voter id", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		_, err := e.Enroll(ctx, "   ", descriptor(0.1), identity.Profile{})
		if !errors.Is(err, face.ErrMissingField) {
			t.Fatalf("Enroll: expected ErrMissingField, got %v", err)
		}
	})

	t.Run("missing descriptor", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		_, err := e.Enroll(ctx, "101", nil, identity.Profile{})
		if !errors.Is(err, face.ErrMissingField) {
			t.Fatalf("Enroll: expected ErrMissingField, got %v", err)
		}
	})

	t.Run("wrong dimension", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		_, err := e.Enroll(ctx, "101", make([]float64, 64), identity.Profile{})
		if !errors.Is(err, face.ErrInvalidDescriptor) {
			t.Fatalf("Enroll: expected ErrInvalidDescriptor, got %v", err)
		}
	})

	t.Run("non-finite element", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		d := descriptor(0.1)
		d[7] = math.NaN()
		_, err := e.Enroll(ctx, "101", d, identity.Profile{})
		if !errors.Is(err, face.ErrInvalidDescriptor) {
			t.Fatalf("Enroll: expected ErrInvalidDescriptor, got %v", err)
		}
	})

	t.Run("duplicate voter id is rejected", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		if _, err := e.Enroll(ctx, "101", descriptor(0.1), identity.Profile{}); err != nil {
			t.Fatalf("Enroll first: unexpected error: %v", err)
		}
		_, err := e.Enroll(ctx, "101", descriptor(0.9), identity.Profile{})
		if !errors.Is(err, face.ErrDuplicateVoter) {
			t.Fatalf("Enroll duplicate: expected ErrDuplicateVoter, got %v", err)
		}
	})

	t.Run("duplicate detection ignores surrounding whitespace", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		if _, err := e.Enroll(ctx, "101", descriptor(0.1), identity.Profile{}); err != nil {
			t.Fatalf("Enroll first: unexpected error: %v", err)
		}
		_, err := e.Enroll(ctx, " 101 ", descriptor(0.2), identity.Profile{})
		if !errors.Is(err, face.ErrDuplicateVoter) {
			t.Fatalf("Enroll duplicate: expected ErrDuplicateVoter, got %v", err)
		}
	})
}

func TestEngineIdentify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("exact match has distance zero", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		d := descriptor(0.25)
		if _, err := e.Enroll(ctx, "101", d, identity.Profile{Name: "Asha", Age: "34"}); err != nil {
			t.Fatalf("Enroll: unexpected error: %v", err)
		}

		m, err := e.Identify(ctx, d)
		if err != nil {
			t.Fatalf("Identify: unexpected error: %v", err)
		}
		if !m.Matched {
			t.Fatal("Identify: expected a match")
		}
		if m.VoterID != "101" {
			t.Fatalf("Identify: expected voter %q, got %q", "101", m.VoterID)
		}
		if m.Distance != 0 {
			t.Fatalf("Identify: expected distance 0, got %g", m.Distance)
		}
		if m.Profile.Name != "Asha" || m.Profile.Age != "34" {
			t.Fatalf("Identify: unexpected profile %+v", m.Profile)
		}
	})

	t.Run("empty store never matches", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		m, err := e.Identify(ctx, descriptor(0.5))
		if err != nil {
			t.Fatalf("Identify: unexpected error: %v", err)
		}
		if m.Matched {
			t.Fatalf("Identify: expected no match on empty store, got %+v", m)
		}
	})

	t.Run("distance exactly at threshold does not match", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		if _, err := e.Enroll(ctx, "101", offsetDescriptor(face.MatchThreshold), identity.Profile{}); err != nil {
			t.Fatalf("Enroll: unexpected error: %v", err)
		}
		m, err := e.Identify(ctx, make([]float64, face.DescriptorDim))
		if err != nil {
			t.Fatalf("Identify: unexpected error: %v", err)
		}
		if m.Matched {
			t.Fatalf("Identify: distance %g must not match at the threshold", m.Distance)
		}
	})

	t.Run("distance just below threshold matches", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		if _, err := e.Enroll(ctx, "101", offsetDescriptor(face.MatchThreshold-0.01), identity.Profile{}); err != nil {
			t.Fatalf("Enroll: unexpected error: %v", err)
		}
		m, err := e.Identify(ctx, make([]float64, face.DescriptorDim))
		if err != nil {
			t.Fatalf("Identify: unexpected error: %v", err)
		}
		if !m.Matched {
			t.Fatal("Identify: expected a match just below the threshold")
		}
	})

	t.Run("nearest of several wins", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		if _, err := e.Enroll(ctx, "far", offsetDescriptor(0.4), identity.Profile{}); err != nil {
			t.Fatalf("Enroll: unexpected error: %v", err)
		}
		if _, err := e.Enroll(ctx, "near", offsetDescriptor(0.1), identity.Profile{}); err != nil {
			t.Fatalf("Enroll: unexpected error: %v", err)
		}
		m, err := e.Identify(ctx, make([]float64, face.DescriptorDim))
		if err != nil {
			t.Fatalf("Identify: unexpected error: %v", err)
		}
		if !m.Matched || m.VoterID != "near" {
			t.Fatalf("Identify: expected voter %q, got %+v", "near", m)
		}
	})

	t.Run("ties resolve to the earliest enrolled", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		d := descriptor(0.3)
		if _, err := e.Enroll(ctx, "first", d, identity.Profile{}); err != nil {
			t.Fatalf("Enroll: unexpected error: %v", err)
		}
		if _, err := e.Enroll(ctx, "second", d, identity.Profile{}); err != nil {
			t.Fatalf("Enroll: unexpected error: %v", err)
		}
		m, err := e.Identify(ctx, d)
		if err != nil {
			t.Fatalf("Identify: unexpected error: %v", err)
		}
		if m.VoterID != "first" {
			t.Fatalf("Identify: expected earliest enrolled %q on tie, got %q", "first", m.VoterID)
		}
	})

	t.Run("invalid query descriptor", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t)
		_, err := e.Identify(ctx, make([]float64, 12))
		if !errors.Is(err, face.ErrInvalidDescriptor) {
			t.Fatalf("Identify: expected ErrInvalidDescriptor, got %v", err)
		}
	})
}

func TestEngineReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	if _, err := e.Enroll(ctx, "101", descriptor(0.1), identity.Profile{}); err != nil {
		t.Fatalf("Enroll: unexpected error: %v", err)
	}

	if err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset: unexpected error: %v", err)
	}

	m, err := e.Identify(ctx, descriptor(0.1))
	if err != nil {
		t.Fatalf("Identify after Reset: unexpected error: %v", err)
	}
	if m.Matched {
		t.Fatalf("Identify after Reset: expected no match, got %+v", m)
	}

	// A cleared store accepts the id again.
	if _, err := e.Enroll(ctx, "101", descriptor(0.1), identity.Profile{}); err != nil {
		t.Fatalf("Enroll after Reset: unexpected error: %v", err)
	}
}

func TestEngineWithIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := face.NewFileStore(filepath.Join(t.TempDir(), "faces.json"))

	// Seed the store before attaching the index, then warm it.
	seed := face.NewEngine(store)
	if _, err := seed.Enroll(ctx, "101", offsetDescriptor(0.1), identity.Profile{Name: "Asha"}); err != nil {
		t.Fatalf("Enroll: unexpected error: %v", err)
	}

	e := face.NewEngine(store, face.WithIndex(face.NewIndex()))
	if err := e.WarmIndex(ctx); err != nil {
		t.Fatalf("WarmIndex: unexpected error: %v", err)
	}

	m, err := e.Identify(ctx, make([]float64, face.DescriptorDim))
	if err != nil {
		t.Fatalf("Identify: unexpected error: %v", err)
	}
	if !m.Matched || m.VoterID != "101" {
		t.Fatalf("Identify via index: expected voter %q, got %+v", "101", m)
	}

	// Enrollments after warming land in the index too.
	if _, err := e.Enroll(ctx, "102", offsetDescriptor(0.02), identity.Profile{}); err != nil {
		t.Fatalf("Enroll: unexpected error: %v", err)
	}
	m, err = e.Identify(ctx, make([]float64, face.DescriptorDim))
	if err != nil {
		t.Fatalf("Identify: unexpected error: %v", err)
	}
	if m.VoterID != "102" {
		t.Fatalf("Identify via index: expected voter %q, got %+v", "102", m)
	}
}
