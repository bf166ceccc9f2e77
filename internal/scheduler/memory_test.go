package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestMemoryRejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch, 3)
	key := PitchKey(uuid.New())

	first, err := m.Schedule(ctx, key, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Schedule(ctx, key, time.Minute); !errors.Is(err, ErrTaskExists) {
		t.Fatalf("expected ErrTaskExists, got %v", err)
	}
	fireAt, ok := m.FireTime(key)
	if !ok || !fireAt.Equal(first.FireAt) {
		t.Fatalf("existing task should be unchanged, fire at %s", fireAt)
	}
}

func TestMemoryFiresInOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch, 0)
	lead := uuid.New()

	var fired []TaskKey
	var firedAt []time.Time
	m.SetHandler(HandlerFunc(func(_ context.Context, task Task) error {
		fired = append(fired, task.Key)
		firedAt = append(firedAt, m.Now())
		return nil
	}))

	_, _ = m.Schedule(ctx, FollowupKey(lead, 2), 5*24*time.Hour)
	_, _ = m.Schedule(ctx, FollowupKey(lead, 1), 3*24*time.Hour)
	_, _ = m.Schedule(ctx, ArchiveCheckKey(lead), 9*24*time.Hour)

	m.Advance(ctx, 6*24*time.Hour)
	if len(fired) != 2 || fired[0].Stage != 1 || fired[1].Stage != 2 {
		t.Fatalf("unexpected firing order %v", fired)
	}
	if !firedAt[0].Equal(epoch.Add(3 * 24 * time.Hour)) {
		t.Fatalf("first task fired at %s", firedAt[0])
	}
	if !m.Now().Equal(epoch.Add(6 * 24 * time.Hour)) {
		t.Fatalf("clock at %s", m.Now())
	}
	if pending := m.Pending(); len(pending) != 1 || pending[0].Kind != KindArchiveCheck {
		t.Fatalf("unexpected pending %v", pending)
	}
}

func TestMemoryCancel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch, 0)
	key := ArchiveCheckKey(uuid.New())

	if ok, err := m.Cancel(ctx, key); ok || err != nil {
		t.Fatalf("cancel unknown = %v, %v", ok, err)
	}
	_, _ = m.Schedule(ctx, key, time.Hour)
	if ok, _ := m.Cancel(ctx, key); !ok {
		t.Fatal("expected pending task to be cancelled")
	}

	fired := false
	m.SetHandler(HandlerFunc(func(context.Context, Task) error { fired = true; return nil }))
	m.Advance(ctx, 2*time.Hour)
	if fired {
		t.Fatal("cancelled task fired")
	}
	if _, err := m.Schedule(ctx, key, time.Hour); err != nil {
		t.Fatalf("key should be reusable after cancel: %v", err)
	}
}

func TestMemoryCancelDuringRunReturnsFalse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch, 0)
	key := PitchKey(uuid.New())

	var cancelled bool
	m.SetHandler(HandlerFunc(func(ctx context.Context, task Task) error {
		cancelled, _ = m.Cancel(ctx, task.Key)
		return nil
	}))
	_, _ = m.Schedule(ctx, key, 0)
	m.Advance(ctx, 0)
	if cancelled {
		t.Fatal("running task must not be cancellable")
	}
}

func TestMemoryRetriesWithBackoff(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch, 2)
	key := PitchKey(uuid.New())

	var attempts []int
	m.SetHandler(HandlerFunc(func(_ context.Context, task Task) error {
		attempts = append(attempts, task.Attempt)
		return errors.New("provider down")
	}))
	_, _ = m.Schedule(ctx, key, 0)

	m.Advance(ctx, 0)
	fireAt, ok := m.FireTime(key)
	if !ok || !fireAt.Equal(epoch.Add(30*time.Second)) {
		t.Fatalf("retry should be due after 30s, got %s (%v)", fireAt, ok)
	}

	m.Advance(ctx, time.Hour)
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %v", attempts)
	}
	dead := m.Dead()
	if len(dead) != 1 || dead[0].Attempts != 3 {
		t.Fatalf("unexpected dead tasks %+v", dead)
	}
}

func TestMemoryPermanentErrorIsNotRetried(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch, 5)
	calls := 0
	m.SetHandler(HandlerFunc(func(context.Context, Task) error {
		calls++
		return Permanent(errors.New("lead deleted"))
	}))
	_, _ = m.Schedule(ctx, PitchKey(uuid.New()), 0)
	m.Advance(ctx, 24*time.Hour)
	if calls != 1 || len(m.Dead()) != 1 {
		t.Fatalf("calls=%d dead=%d", calls, len(m.Dead()))
	}
}

func TestMemoryHandlerCanScheduleFollowingTask(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch, 0)
	lead := uuid.New()

	var fired []TaskKind
	m.SetHandler(HandlerFunc(func(ctx context.Context, task Task) error {
		fired = append(fired, task.Key.Kind)
		if task.Key.Kind == KindPitch {
			_, err := m.Schedule(ctx, FollowupKey(lead, 1), 24*time.Hour)
			return err
		}
		return nil
	}))
	_, _ = m.Schedule(ctx, PitchKey(lead), 0)
	m.Advance(ctx, 2*24*time.Hour)
	if len(fired) != 2 || fired[1] != KindFollowup {
		t.Fatalf("unexpected fired %v", fired)
	}
}
