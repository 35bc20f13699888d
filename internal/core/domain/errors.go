package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Pipeline Errors.

	// ErrValidation indicates an upload was rejected (size, type or name).
	// The message is user-correctable and surfaced verbatim.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates an ingestion is already running for the document.
	ErrConflict = errors.New("ingestion already in progress")

	// ErrExtraction indicates no usable content could be extracted.
	// It is fatal for the ingestion attempt and never retried.
	ErrExtraction = errors.New("extraction failed")

	// ErrChunking indicates the extracted text was empty.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbedding indicates the embedding capability failed after all retries.
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval indicates a ready document has an empty namespace.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrNotReady indicates the document cannot be queried in its current status.
	ErrNotReady = errors.New("document not ready")

	// ErrSuperseded indicates the document was deleted while it was being ingested.
	ErrSuperseded = errors.New("superseded by delete")

	// Capability Errors.

	// ErrCapabilityUnavailable indicates an external AI capability is not configured
	// or is refusing requests (for example an open circuit breaker).
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrRateLimited indicates the capability rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
