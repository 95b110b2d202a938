// Package vectormath provides the numeric primitives used by the biometric
// match engines: Euclidean distance and cosine similarity over fixed-length
// feature vectors, and dynamic-time-warping (DTW) distance over variable-length
// frame sequences.
//
// All functions are pure and safe for concurrent use.
package vectormath

import (
	"fmt"
	"math"
)

// EuclideanDistance returns the L2 distance between a and b.
// Both vectors must have the same length.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectormath: length mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// It returns 0 (rather than an error) when the vectors differ in length or
// either has zero norm, so callers can treat the result as "no similarity"
// without branching on failure.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DTWDistance returns the dynamic-time-warping distance between two sequences
// of frames. The sequences may differ in length; the result is normalized by
// the sum of both lengths so that sequences of different duration remain
// comparable. An empty sequence yields +Inf.
//
// The distance is symmetric: DTWDistance(a, b) == DTWDistance(b, a).
// Cost is O(n·m) in both time and space.
func DTWDistance(seqA, seqB [][]float64) float64 {
	n, m := len(seqA), len(seqB)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	dp := make([][]float64, n+1)
	for i := range dp {
		dp[i] = make([]float64, m+1)
		for j := range dp[i] {
			dp[i][j] = math.Inf(1)
		}
	}
	dp[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost, err := EuclideanDistance(seqA[i-1], seqB[j-1])
			if err != nil {
				// Frames with mismatched dimensions cannot be aligned.
				return math.Inf(1)
			}
			dp[i][j] = cost + math.Min(dp[i-1][j-1], math.Min(dp[i-1][j], dp[i][j-1]))
		}
	}

	return dp[n][m] / float64(n+m)
}
