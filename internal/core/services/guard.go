package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// writeGuard serialises ingestion writes against deletion of one document.
// Once tombstoned every guarded write is discarded with domain.ErrSuperseded.
// Its generation counts ingestions started, so a query can detect that the
// namespace it searched was rebuilt underneath it.
type writeGuard struct {
	mu      sync.RWMutex
	deleted bool

	generation atomic.Uint64
}

// tombstone marks the document deleted, waiting for in-flight writes to finish.
func (g *writeGuard) tombstone() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = true
}

func (g *writeGuard) tombstoned() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.deleted
}

// do runs fn unless the document has been deleted.
func (g *writeGuard) do(fn func() error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.deleted {
		return domain.ErrSuperseded
	}
	return fn()
}

// guardedIndex routes an ingestion's namespace writes through its guard.
type guardedIndex struct {
	driven.VectorIndex
	guard *writeGuard
}

// Upsert writes records unless the document was deleted.
func (g *guardedIndex) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	return g.guard.do(func() error {
		return g.VectorIndex.Upsert(ctx, namespace, records)
	})
}

// DeleteNamespace clears the namespace unless the document was deleted.
func (g *guardedIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	return g.guard.do(func() error {
		return g.VectorIndex.DeleteNamespace(ctx, namespace)
	})
}
