package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"prospector_backend/platform/logger"
)

type recordingPruner struct {
	cutoffs []time.Time
	err     error
}

func (p *recordingPruner) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, before)
	return 3, p.err
}

func TestRetentionSweepCutoff(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	pruner := &recordingPruner{}
	sweep := NewRetentionSweep(pruner, logger.New("test"), 0, 24*time.Hour)
	sweep.now = func() time.Time { return now }

	sweep.sweep(context.Background())

	if len(pruner.cutoffs) != 1 || !pruner.cutoffs[0].Equal(now.Add(-24*time.Hour)) {
		t.Fatalf("unexpected cutoffs %v", pruner.cutoffs)
	}
	if sweep.interval != defaultRetentionInterval {
		t.Fatalf("expected default interval, got %s", sweep.interval)
	}
}

func TestRetentionSweepStopsOnCancel(t *testing.T) {
	pruner := &recordingPruner{err: errors.New("db down")}
	sweep := NewRetentionSweep(pruner, logger.New("test"), time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sweep.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after cancel")
	}
	if len(pruner.cutoffs) != 1 {
		t.Fatalf("expected one initial sweep, got %d", len(pruner.cutoffs))
	}
}
