// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDocuments is the document list with the live event log.
	ViewDocuments ViewType = iota
	// ViewAsk is the question input and answer view for one document.
	ViewAsk
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDocuments:
		return "documents"
	case ViewAsk:
		return "ask"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// DocumentsLoaded carries the registry listing.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// EventReceived carries one progress event from the registry subscription.
type EventReceived struct {
	Event domain.ProgressEvent
}

// SubscriptionClosed signals that the event stream ended.
type SubscriptionClosed struct{}

// IngestStarted reports the result of starting a background ingestion.
type IngestStarted struct {
	Document *domain.Document
	Err      error
}

// AnswerReceived carries the answer to a question.
type AnswerReceived struct {
	Result *domain.QueryResult
	Err    error
}

// DocumentDeleted reports the result of a delete.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
