// Package scheduler is the durable delayed-task queue behind the lead lifecycle.
// Tasks are addressed by TaskKey; the queue guarantees at most one live task per key,
// retries failed handlers with exponential backoff, and surfaces exhausted tasks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTaskExists is returned when a live task with the same key is already scheduled.
// The existing task is kept unchanged.
var ErrTaskExists = errors.New("task already scheduled")

// ErrPermanent marks a handler failure that must not be retried.
var ErrPermanent = errors.New("permanent task failure")

// Permanent wraps err so the queue moves the task straight to the dead state.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Handle describes a scheduled task.
type Handle struct {
	ID     string
	FireAt time.Time
}

// Scheduler schedules and cancels keyed lead work.
type Scheduler interface {
	// Schedule registers work for key to run after delay. Returns ErrTaskExists when a
	// live task for key is already pending.
	Schedule(ctx context.Context, key TaskKey, delay time.Duration) (Handle, error)
	// Cancel removes a not-yet-fired task. It reports whether a pending task was removed;
	// cancelling an unknown, running or finished task returns false and no error.
	Cancel(ctx context.Context, key TaskKey) (bool, error)
}

// Handler executes fired lead tasks. Returning nil completes the task; returning an error
// schedules a retry unless the error wraps ErrPermanent.
type Handler interface {
	HandleTask(ctx context.Context, task Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task Task) error

func (f HandlerFunc) HandleTask(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// DeadTaskReporter is told about tasks that exhausted their retries.
type DeadTaskReporter interface {
	ReportDeadTask(ctx context.Context, taskType, taskID string, attempts int, err error)
}

const (
	retryBaseDelay = 30 * time.Second
	retryMaxDelay  = time.Hour
)

// RetryDelay is the backoff before retry n (1-based): 30s, 1m, 2m, ... capped at one hour.
func RetryDelay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := retryBaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}
