package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"prospector_backend/platform/logger"
)

type pingEvent struct{ BaseEvent }

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls int32
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{NewBaseEvent()})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d", calls)
	}
}

func TestPublishRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var ran atomic.Bool
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		panic("handler exploded")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		ran.Store(true)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pingEvent{NewBaseEvent()})
	bus.Wait()

	if !ran.Load() {
		t.Fatal("expected second handler to run despite panic and cancelled parent context")
	}
}
