package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	c := newClient(opt, "prospector", 3)
	inspector := asynq.NewInspector(opt)
	t.Cleanup(func() {
		_ = inspector.Close()
		_ = c.Close()
	})
	return c, inspector
}

func TestClientRejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	key := FollowupKey(uuid.New(), 1)

	handle, err := c.Schedule(ctx, key, 72*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if handle.ID != key.String() {
		t.Fatalf("task id = %q, want %q", handle.ID, key.String())
	}

	if _, err := c.Schedule(ctx, key, time.Hour); !errors.Is(err, ErrTaskExists) {
		t.Fatalf("expected ErrTaskExists, got %v", err)
	}
}

func TestClientCancel(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	key := PitchKey(uuid.New())

	if _, err := c.Schedule(ctx, key, time.Hour); err != nil {
		t.Fatal(err)
	}

	ok, err := c.Cancel(ctx, key)
	if err != nil || !ok {
		t.Fatalf("first cancel: ok=%v err=%v", ok, err)
	}
	ok, err = c.Cancel(ctx, key)
	if err != nil || ok {
		t.Fatalf("second cancel: ok=%v err=%v", ok, err)
	}

	if _, err := c.Schedule(ctx, key, time.Hour); err != nil {
		t.Fatalf("reschedule after cancel: %v", err)
	}
}

func TestClientCancelUnknownKey(t *testing.T) {
	c, _ := newTestClient(t)

	ok, err := c.Cancel(context.Background(), ArchiveCheckKey(uuid.New()))
	if err != nil || ok {
		t.Fatalf("cancel unknown: ok=%v err=%v", ok, err)
	}
}

func TestClientReplacesDeadTask(t *testing.T) {
	ctx := context.Background()
	c, inspector := newTestClient(t)
	key := FollowupKey(uuid.New(), 2)

	if _, err := c.Schedule(ctx, key, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := inspector.ArchiveTask("prospector", key.String()); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Schedule(ctx, key, 2*time.Hour); err != nil {
		t.Fatalf("schedule over dead task: %v", err)
	}
	info, err := inspector.GetTaskInfo("prospector", key.String())
	if err != nil {
		t.Fatal(err)
	}
	if info.State != asynq.TaskStateScheduled {
		t.Fatalf("state = %s, want scheduled", info.State)
	}
}

func TestClientCancelDeadTaskFreesKey(t *testing.T) {
	ctx := context.Background()
	c, inspector := newTestClient(t)
	key := PitchKey(uuid.New())

	if _, err := c.Schedule(ctx, key, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := inspector.ArchiveTask("prospector", key.String()); err != nil {
		t.Fatal(err)
	}

	ok, err := c.Cancel(ctx, key)
	if err != nil || ok {
		t.Fatalf("cancel dead task: ok=%v err=%v", ok, err)
	}
	if _, err := inspector.GetTaskInfo("prospector", key.String()); !errors.Is(err, asynq.ErrTaskNotFound) {
		t.Fatalf("dead task should be deleted, got %v", err)
	}
}
