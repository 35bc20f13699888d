// Package rank scores and orders vector hits for the brute-force indexes.
package rank

import (
	"math"
	"sort"

	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Cosine returns the cosine similarity of a and b, or 0 if either is zero.
// The vectors must have the same length.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Top sorts hits by similarity, best first, and keeps at most k.
// Ties are broken by chunk index so results are deterministic.
func Top(hits []driven.VectorHit, k int) []driven.VectorHit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
