// Package eventbus provides event-driven communication infrastructure for
// execution lifecycle notifications.
package eventbus

import (
	"context"

	"github.com/dukex/stepflow/pkg/events"
)

// Event is anything publishable on the bus; the type tag routes it to the
// right handler on the consuming side.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is the engine-facing half of the bus. The key partitions
// messages; the engine uses the automation ID so one automation's events stay
// ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber registers handlers by event type and starts consumption.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
