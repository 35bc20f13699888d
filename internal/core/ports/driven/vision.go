package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// Page is one unit submitted to the vision capability.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Data is the page content: a single-page PDF or an image.
	Data []byte

	// MIMEType describes Data (application/pdf, image/png, image/jpeg).
	MIMEType string
}

// VisionService analyses a page and returns its text with structural hints.
//
// Implementations may include:
//   - Anthropic (Claude messages API with image/document blocks)
//   - Gemini
type VisionService interface {
	// Extract analyses one page. An error means the page produced nothing usable.
	Extract(ctx context.Context, page Page) (*domain.VisionResult, error)

	// ModelName returns the name of the vision model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// PageSplitter splits a paginated document into single pages.
type PageSplitter interface {
	// Split returns the pages of data in order.
	Split(ctx context.Context, data []byte) ([]Page, error)
}

// TextExtractor reads text-native formats directly into segments.
type TextExtractor interface {
	// SupportedClasses returns the document classes this extractor handles.
	SupportedClasses() []domain.Class

	// Extract returns the document's segments in reading order.
	Extract(ctx context.Context, data []byte) ([]domain.ExtractedSegment, error)
}
