package domain

import (
	"context"

	"rwpay/internal/core/id"
)

// Event is a domain event written to the transactional outbox.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher stores events in the same transaction as the change they describe.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
