package driven

import "github.com/custodia-labs/medrag/internal/core/domain"

// EventPublisher broadcasts progress events.
// Publish must never block on slow observers.
type EventPublisher interface {
	Publish(event domain.ProgressEvent)
}
