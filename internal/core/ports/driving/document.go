package driving

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// DocumentRegistry owns the document lifecycle and coordinates ingestion and
// question answering. It is the entry point for every presentation surface.
type DocumentRegistry interface {
	// Register validates an upload and records it in the uploaded state.
	Register(ctx context.Context, data []byte, filename string) (*domain.Document, error)

	// Ingest runs extraction, chunking and indexing to completion.
	// Returns domain.ErrConflict if an ingestion is already running.
	Ingest(ctx context.Context, documentID string) (*domain.Document, error)

	// StartIngest moves the document to analyzing and finishes ingestion in the background.
	StartIngest(ctx context.Context, documentID string) (*domain.Document, error)

	// Query answers a question from a ready document.
	// Returns domain.ErrNotReady unless the document is ready.
	Query(ctx context.Context, documentID, question string) (*domain.QueryResult, error)

	// Delete removes the document, its raw upload and its namespace.
	Delete(ctx context.Context, documentID string) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Info returns a document with live namespace details.
	Info(ctx context.Context, documentID string) (*domain.DocumentInfo, error)

	// List returns all documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Subscribe registers an observer of progress events.
	// A non-positive size uses the configured queue size.
	Subscribe(size int) EventSubscription
}

// EventSubscription is an observer's handle on the progress event stream.
type EventSubscription interface {
	// Events delivers events in publish order. Closed after Unsubscribe.
	Events() <-chan domain.ProgressEvent

	// Dropped returns how many events were discarded because the observer fell behind.
	Dropped() uint64

	// Unsubscribe stops delivery. Safe to call more than once.
	Unsubscribe()
}
