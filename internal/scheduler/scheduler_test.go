package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"prospector_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestParseKey(t *testing.T) {
	lead := uuid.New()
	for _, key := range []TaskKey{PitchKey(lead), FollowupKey(lead, 2), ArchiveCheckKey(lead)} {
		parsed, err := ParseKey(key.String())
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", key, err)
		}
		if parsed != key {
			t.Fatalf("ParseKey(%q) = %+v", key, parsed)
		}
	}

	for _, raw := range []string{"", "pitch", "pitch:not-a-uuid", "followup:" + lead.String() + ":4", "nudge:" + lead.String()} {
		if _, err := ParseKey(raw); err == nil {
			t.Fatalf("ParseKey(%q) should fail", raw)
		}
	}
}

func TestFollowupKeyString(t *testing.T) {
	lead := uuid.MustParse("6f1c0c4e-8d1f-4a44-9a51-8f7a4e0d2b10")
	if got := FollowupKey(lead, 3).String(); got != "followup:6f1c0c4e-8d1f-4a44-9a51-8f7a4e0d2b10:3" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestPendingKeys(t *testing.T) {
	keys := PendingKeys(uuid.New(), 3)
	if len(keys) != 5 {
		t.Fatalf("expected 5 keys, got %d", len(keys))
	}
	if keys[0].Kind != KindPitch || keys[4].Kind != KindArchiveCheck {
		t.Fatalf("unexpected key order %v", keys)
	}
}

func TestRetryDelay(t *testing.T) {
	cases := map[int]time.Duration{
		0:  30 * time.Second,
		1:  30 * time.Second,
		2:  time.Minute,
		3:  2 * time.Minute,
		7:  32 * time.Minute,
		8:  time.Hour,
		20: time.Hour,
	}
	for n, want := range cases {
		if got := RetryDelay(n); got != want {
			t.Errorf("RetryDelay(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestToAsynqErrorSkipsRetryForPermanent(t *testing.T) {
	err := toAsynqError(Permanent(errors.New("lead missing")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatal("permanent error should skip retry")
	}
	if errors.Is(toAsynqError(errors.New("timeout")), asynq.SkipRetry) {
		t.Fatal("transient error should be retried")
	}
}

func TestRunLeadTaskDecodesPayload(t *testing.T) {
	key := FollowupKey(uuid.New(), 1)
	task, err := NewLeadWorkTask(key, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TaskLeadFollowup {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	var got Task
	handler := HandlerFunc(func(_ context.Context, task Task) error {
		got = task
		return nil
	})
	if err := runLeadTask(context.Background(), handler, logger.Discard(), task); err != nil {
		t.Fatal(err)
	}
	if got.Key != key {
		t.Fatalf("handler got key %v, want %v", got.Key, key)
	}
}

func TestRunLeadTaskRejectsBadPayload(t *testing.T) {
	task := asynq.NewTask(TaskLeadPitch, []byte(`{"key":"pitch:nope"}`))
	err := runLeadTask(context.Background(), HandlerFunc(func(context.Context, Task) error { return nil }), logger.Discard(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
