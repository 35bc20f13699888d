package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// PostProcessor turns extracted segments into chunks.
// PostProcessors are chained in a pipeline (chunking, hashing).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document's segments and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	// If the processor modifies chunks (e.g., hasher), it receives and returns chunks.
	Process(ctx context.Context, documentID string, segments []domain.ExtractedSegment, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the segments through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, documentID string, segments []domain.ExtractedSegment) ([]domain.Chunk, error)
}
