package vectormath_test

import (
	"math"
	"testing"

	"github.com/verivote/verivote/pkg/vectormath"
)

func TestEuclideanDistance(t *testing.T) {
	t.Parallel()

	t.Run("identity is zero", func(t *testing.T) {
		t.Parallel()
		v := []float64{1.5, -2.25, 0, 42}
		got, err := vectormath.EuclideanDistance(v, v)
		if err != nil {
			t.Fatalf("EuclideanDistance: unexpected error: %v", err)
		}
		if got != 0 {
			t.Fatalf("EuclideanDistance(v, v) = %v, want 0", got)
		}
	})

	t.Run("known value", func(t *testing.T) {
		t.Parallel()
		got, err := vectormath.EuclideanDistance([]float64{0, 0}, []float64{3, 4})
		if err != nil {
			t.Fatalf("EuclideanDistance: unexpected error: %v", err)
		}
		if got != 5 {
			t.Fatalf("EuclideanDistance = %v, want 5", got)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		t.Parallel()
		a := []float64{1, 2, 3}
		b := []float64{-4, 0, 7.5}
		ab, _ := vectormath.EuclideanDistance(a, b)
		ba, _ := vectormath.EuclideanDistance(b, a)
		if ab != ba {
			t.Fatalf("EuclideanDistance not symmetric: %v vs %v", ab, ba)
		}
	})

	t.Run("length mismatch errors", func(t *testing.T) {
		t.Parallel()
		if _, err := vectormath.EuclideanDistance([]float64{1}, []float64{1, 2}); err == nil {
			t.Fatal("EuclideanDistance: expected error for mismatched lengths")
		}
	})
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	t.Run("parallel vectors", func(t *testing.T) {
		t.Parallel()
		got := vectormath.CosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6})
		if math.Abs(got-1) > 1e-12 {
			t.Fatalf("CosineSimilarity = %v, want 1", got)
		}
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		t.Parallel()
		got := vectormath.CosineSimilarity([]float64{1, 0}, []float64{0, 1})
		if got != 0 {
			t.Fatalf("CosineSimilarity = %v, want 0", got)
		}
	})

	t.Run("zero norm yields zero", func(t *testing.T) {
		t.Parallel()
		if got := vectormath.CosineSimilarity([]float64{0, 0}, []float64{1, 1}); got != 0 {
			t.Fatalf("CosineSimilarity with zero vector = %v, want 0", got)
		}
	})

	t.Run("length mismatch yields zero", func(t *testing.T) {
		t.Parallel()
		if got := vectormath.CosineSimilarity([]float64{1}, []float64{1, 2}); got != 0 {
			t.Fatalf("CosineSimilarity with mismatched lengths = %v, want 0", got)
		}
	})
}

func constantSeq(frames, dim int, value float64) [][]float64 {
	seq := make([][]float64, frames)
	for i := range seq {
		seq[i] = make([]float64, dim)
		for j := range seq[i] {
			seq[i][j] = value
		}
	}
	return seq
}

func TestDTWDistance(t *testing.T) {
	t.Parallel()

	t.Run("identical sequence is zero", func(t *testing.T) {
		t.Parallel()
		s := [][]float64{{1, 2}, {3, 4}, {5, 6}}
		if got := vectormath.DTWDistance(s, s); got != 0 {
			t.Fatalf("DTWDistance(s, s) = %v, want 0", got)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		t.Parallel()
		a := [][]float64{{0, 0}, {1, 1}, {2, 2}}
		b := [][]float64{{0.5, 0.5}, {1.5, 1.5}}
		ab := vectormath.DTWDistance(a, b)
		ba := vectormath.DTWDistance(b, a)
		if ab != ba {
			t.Fatalf("DTWDistance not symmetric: %v vs %v", ab, ba)
		}
	})

	t.Run("empty sequence is infinite", func(t *testing.T) {
		t.Parallel()
		s := [][]float64{{1}}
		if got := vectormath.DTWDistance(nil, s); !math.IsInf(got, 1) {
			t.Fatalf("DTWDistance(nil, s) = %v, want +Inf", got)
		}
		if got := vectormath.DTWDistance(s, nil); !math.IsInf(got, 1) {
			t.Fatalf("DTWDistance(s, nil) = %v, want +Inf", got)
		}
	})

	t.Run("unequal lengths align", func(t *testing.T) {
		t.Parallel()
		// Same trajectory at different speeds should align closely.
		a := constantSeq(10, 13, 1)
		b := constantSeq(4, 13, 1)
		if got := vectormath.DTWDistance(a, b); got != 0 {
			t.Fatalf("DTWDistance over constant sequences = %v, want 0", got)
		}
	})

	t.Run("length normalization", func(t *testing.T) {
		t.Parallel()
		// Every alignment step costs exactly 2 (distance between the constant
		// frames), so the raw path cost grows with max(n, m) while the result
		// stays bounded by the (n+m) normalization.
		a := constantSeq(6, 2, 0)
		b := constantSeq(3, 2, 2) // per-frame distance = sqrt(2²+2²) = 2√2
		got := vectormath.DTWDistance(a, b)
		want := 6 * 2 * math.Sqrt2 / float64(6+3)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("DTWDistance = %v, want %v", got, want)
		}
	})

	t.Run("mismatched frame dimensions is infinite", func(t *testing.T) {
		t.Parallel()
		a := [][]float64{{1, 2}}
		b := [][]float64{{1, 2, 3}}
		if got := vectormath.DTWDistance(a, b); !math.IsInf(got, 1) {
			t.Fatalf("DTWDistance with mixed dims = %v, want +Inf", got)
		}
	})
}
