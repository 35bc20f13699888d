package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a brute-force in-memory vector index with one map per namespace.
// Similarity is cosine; vectors need not be normalised.
type VectorIndex struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]driven.VectorRecord
}

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		namespaces: make(map[string]map[string]driven.VectorRecord),
	}
}

// Upsert inserts or replaces records, creating the namespace if needed.
// All vectors in a namespace must share a dimension.
func (v *VectorIndex) Upsert(_ context.Context, namespace string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	ns, ok := v.namespaces[namespace]
	dim := len(records[0].Vector)
	for _, existing := range ns {
		dim = len(existing.Vector)
		break
	}
	for _, r := range records {
		if len(r.Vector) == 0 || len(r.Vector) != dim {
			return fmt.Errorf("%w: vector dimension %d, namespace uses %d", domain.ErrInvalidInput, len(r.Vector), dim)
		}
	}

	if !ok {
		ns = make(map[string]driven.VectorRecord, len(records))
		v.namespaces[namespace] = ns
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		ns[r.ID] = r
	}
	return nil
}

// Search returns the k most similar records, best first.
// Ties are broken by chunk index so results are deterministic.
func (v *VectorIndex) Search(_ context.Context, namespace string, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	ns := v.namespaces[namespace]
	hits := make([]driven.VectorHit, 0, len(ns))
	for id := range ns {
		r := ns[id]
		if len(r.Vector) != len(query) {
			return nil, fmt.Errorf("%w: query dimension %d, namespace uses %d", domain.ErrInvalidInput, len(query), len(r.Vector))
		}
		hits = append(hits, driven.VectorHit{ID: r.ID, Chunk: r.Chunk, Similarity: rank.Cosine(query, r.Vector)})
	}
	return rank.Top(hits, k), nil
}

// Count returns the number of records in a namespace.
func (v *VectorIndex) Count(_ context.Context, namespace string) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.namespaces[namespace]), nil
}

// DeleteNamespace removes a namespace and its records.
func (v *VectorIndex) DeleteNamespace(_ context.Context, namespace string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.namespaces, namespace)
	return nil
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	return nil
}
