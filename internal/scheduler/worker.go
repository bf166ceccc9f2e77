package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// JobFunc runs a one-off or periodic job with its raw payload.
type JobFunc func(ctx context.Context, payload []byte) error

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	handler  Handler
	reporter DeadTaskReporter
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handler Handler, reporter DeadTaskReporter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	w := &Worker{
		mux:      asynq.NewServeMux(),
		handler:  handler,
		reporter: reporter,
		log:      log,
	}

	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		RetryDelayFunc:  retryDelayFunc,
		IsFailure:       isFailure,
		ErrorHandler:    asynq.ErrorHandlerFunc(w.handleError),
		ShutdownTimeout: 30 * time.Second,
	})

	w.mux.HandleFunc(TaskLeadPitch, w.handleLeadTask)
	w.mux.HandleFunc(TaskLeadFollowup, w.handleLeadTask)
	w.mux.HandleFunc(TaskLeadArchiveCheck, w.handleLeadTask)

	return w, nil
}

// HandleJob registers fn for a job task type such as TaskScanRun.
func (w *Worker) HandleJob(taskType string, fn JobFunc) {
	w.mux.HandleFunc(taskType, func(ctx context.Context, task *asynq.Task) error {
		w.log.TaskEvent("started", taskType)
		if err := fn(ctx, task.Payload()); err != nil {
			return toAsynqError(err)
		}
		w.log.TaskEvent("completed", taskType)
		return nil
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadTask(ctx context.Context, task *asynq.Task) error {
	return runLeadTask(ctx, w.handler, w.log, task)
}

func runLeadTask(ctx context.Context, handler Handler, log *logger.Logger, task *asynq.Task) error {
	work, err := ParseLeadWorkPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if retried, ok := asynq.GetRetryCount(ctx); ok {
		work.Attempt = retried
	}

	key := work.Key.String()
	log.TaskEvent("fired", key, "attempt", work.Attempt)
	if err := handler.HandleTask(ctx, work); err != nil {
		log.TaskEvent("failed", key, "attempt", work.Attempt, "error", err)
		return toAsynqError(err)
	}
	log.TaskEvent("completed", key)
	return nil
}

func (w *Worker) handleError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if !errors.Is(err, asynq.SkipRetry) && retried < maxRetry {
		return
	}

	taskID, _ := asynq.GetTaskID(ctx)
	w.log.TaskEvent("dead", taskID, "type", task.Type(), "attempts", retried+1, "error", err)
	if w.reporter != nil {
		w.reporter.ReportDeadTask(context.WithoutCancel(ctx), task.Type(), taskID, retried+1, err)
	}
}

func toAsynqError(err error) error {
	if errors.Is(err, ErrPermanent) {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}

func retryDelayFunc(n int, _ error, _ *asynq.Task) time.Duration {
	return RetryDelay(n)
}

// Cancellation during shutdown is not a task failure; asynq re-queues the task.
func isFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}
