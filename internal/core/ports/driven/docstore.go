package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// DocumentStore persists document records.
type DocumentStore interface {
	// Save stores or updates a document.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns all documents ordered by creation time.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error
}

// BlobStore persists raw uploads keyed by document ID.
type BlobStore interface {
	// Put stores data under key.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the data stored under key. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
