package driven

import "github.com/custodia-labs/sercha-sync/internal/core/domain"

// EventPublisher emits notifications. Publish must not block the caller.
type EventPublisher interface {
	Publish(event domain.Event)
}
