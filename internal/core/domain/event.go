package domain

import "time"

// EventKind identifies the pipeline step a ProgressEvent reports.
type EventKind string

// Progress event kinds.
const (
	EventUpload             EventKind = "upload"
	EventExtractionStart    EventKind = "extraction_start"
	EventExtractionProgress EventKind = "extraction_progress"
	EventChunkingDone       EventKind = "chunking_done"
	EventIndexingProgress   EventKind = "indexing_progress"
	EventReady              EventKind = "ready"
	EventError              EventKind = "error"
	EventDeleted            EventKind = "deleted"
	EventRetrieval          EventKind = "retrieval"
	EventAnswer             EventKind = "answer"
)

// EventLevel is the display severity of an event.
type EventLevel string

// Event levels.
const (
	LevelInfo    EventLevel = "info"
	LevelSuccess EventLevel = "success"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// ProgressEvent is an immutable pipeline notification.
type ProgressEvent struct {
	// Seq is assigned by the bus on publish and increases monotonically.
	Seq uint64 `json:"seq"`

	// DocumentID is the document the event concerns.
	DocumentID string `json:"document_id"`

	// Kind identifies the pipeline step.
	Kind EventKind `json:"kind"`

	// Level is the display severity.
	Level EventLevel `json:"level"`

	// Message is free text for humans.
	Message string `json:"message"`

	// Detail is an optional structured payload.
	Detail map[string]any `json:"detail,omitempty"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`
}

// IsTerminal returns true if the event ends an ingestion attempt.
func (e ProgressEvent) IsTerminal() bool {
	return e.Kind == EventReady || e.Kind == EventError || e.Kind == EventDeleted
}

// NewEvent builds an info-level event.
func NewEvent(documentID string, kind EventKind, message string) ProgressEvent {
	return ProgressEvent{
		DocumentID: documentID,
		Kind:       kind,
		Level:      LevelInfo,
		Message:    message,
	}
}

// WithLevel returns a copy of the event with the given level.
func (e ProgressEvent) WithLevel(level EventLevel) ProgressEvent {
	e.Level = level
	return e
}

// WithDetail returns a copy of the event with the given detail payload.
func (e ProgressEvent) WithDetail(detail map[string]any) ProgressEvent {
	e.Detail = detail
	return e
}
