package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// VectorIndex provides namespaced vector storage and similarity search.
// Each document owns exactly one namespace.
type VectorIndex interface {
	// Upsert inserts or replaces records in a namespace, creating it if needed.
	// Records with an existing ID overwrite the previous record.
	Upsert(ctx context.Context, namespace string, records []VectorRecord) error

	// Search finds the k nearest records to the query vector.
	// A missing namespace yields no hits and no error.
	Search(ctx context.Context, namespace string, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of records in a namespace (0 if missing).
	Count(ctx context.Context, namespace string) (int, error)

	// DeleteNamespace removes a namespace and every record in it.
	// Deleting a missing namespace is not an error.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Close releases resources.
	Close() error
}

// VectorRecord is a vector with its chunk payload.
type VectorRecord struct {
	// ID is the upsert key.
	ID string

	// Vector is the chunk embedding.
	Vector []float32

	// Chunk is the stored payload.
	Chunk domain.Chunk
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched record.
	ID string

	// Chunk is the matched payload.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score.
	Similarity float64
}
