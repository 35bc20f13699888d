// Package domain defines the core business entities for medrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded medical document and its lifecycle status
//   - Chunk: A bounded unit of document text indexed for retrieval
//   - ExtractedSegment: Text produced by extraction, with page provenance
//   - QueryResult: A generated answer and the evidence behind it
//   - ProgressEvent: A pipeline notification broadcast to observers
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
