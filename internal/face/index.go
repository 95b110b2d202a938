package face

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/verivote/verivote/pkg/vectormath"
)

// maxNeighbors is the HNSW graph connectivity (the M parameter).
const maxNeighbors = 16

// Index is an optional in-memory HNSW index over enrolled descriptors that
// replaces the O(N) linear scan in [Engine.Identify] with an approximate
// nearest-neighbor lookup. Because the search is approximate, the returned
// neighbor can occasionally differ from the true minimum; the index is
// therefore opt-in and intended for deployments where N makes the full scan
// too slow.
//
// All methods are safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[string]
	profiles map[string]BiometricProfile
}

// NewIndex returns an empty [Index].
func NewIndex() *Index {
	ix := &Index{}
	ix.reset()
	return ix
}

func (ix *Index) reset() {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	ix.graph = g
	ix.profiles = make(map[string]BiometricProfile)
}

// Rebuild replaces the index contents with the given profiles.
func (ix *Index) Rebuild(profiles []BiometricProfile) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.reset()
	for _, p := range profiles {
		ix.graph.Add(hnsw.MakeNode(p.VoterID, toFloat32(p.Descriptor)))
		ix.profiles[p.VoterID] = p
	}
}

// Add inserts one profile into the index.
func (ix *Index) Add(p BiometricProfile) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.graph.Add(hnsw.MakeNode(p.VoterID, toFloat32(p.Descriptor)))
	ix.profiles[p.VoterID] = p
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.reset()
}

// Len returns the number of indexed profiles.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.profiles)
}

// Nearest returns the (approximately) closest enrolled profile to the query
// descriptor and its exact Euclidean distance. The distance is recomputed in
// float64 on the stored descriptor so the match-threshold comparison is not
// affected by float32 graph storage. The boolean result is false when the
// index is empty.
func (ix *Index) Nearest(descriptor []float64) (BiometricProfile, float64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.profiles) == 0 {
		return BiometricProfile{}, 0, false
	}

	neighbors := ix.graph.Search(toFloat32(descriptor), 1)
	if len(neighbors) == 0 {
		return BiometricProfile{}, 0, false
	}

	p, ok := ix.profiles[neighbors[0].Key]
	if !ok {
		return BiometricProfile{}, 0, false
	}
	dist, err := vectormath.EuclideanDistance(descriptor, p.Descriptor)
	if err != nil {
		return BiometricProfile{}, 0, false
	}
	return p, dist, true
}

func toFloat32(d []float64) []float32 {
	f32 := make([]float32, len(d))
	for i, v := range d {
		f32[i] = float32(v)
	}
	return f32
}
