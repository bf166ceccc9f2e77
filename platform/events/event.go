// Package events is the in-process publish/subscribe bus that decouples the
// lifecycle orchestrator from notifications and the dashboard stream.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus. EventName is the subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the publish timestamp; embed it in concrete events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Publisher is the side held by producers such as the orchestrator and the reply router.
type Publisher interface {
	// Publish fans the event out asynchronously; handler errors are logged, not returned.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers inline and joins their errors.
	PublishSync(ctx context.Context, event Event) error
}

// Subscriber is the side held by consumers.
type Subscriber interface {
	Subscribe(eventName string, handler Handler)
}

// Bus is both sides.
type Bus interface {
	Publisher
	Subscriber
}
