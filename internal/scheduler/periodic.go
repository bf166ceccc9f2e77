package scheduler

import (
	"fmt"
	"time"

	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the cron-driven jobs: discovery scan, pitch batch and daily briefing.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.GetTimezone())
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.GetTimezone(), err)
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	p := &Periodic{log: log}
	p.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: loc,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Warn("periodic job enqueue failed", "error", err)
				return
			}
			log.TaskEvent("enqueued", info.Type, "taskId", info.ID)
		},
	})

	jobs := []struct {
		cron     string
		taskType string
		payload  any
	}{
		{cfg.GetScanCron(), TaskScanRun, ScanRunPayload{Trigger: "schedule"}},
		{cfg.GetPitchCron(), TaskPitchBatch, PitchBatchPayload{Trigger: "schedule"}},
		{cfg.GetBriefingCron(), TaskDailyBriefing, nil},
	}
	for _, job := range jobs {
		if job.cron == "" {
			continue
		}
		task, err := NewJobTask(job.taskType, job.payload)
		if err != nil {
			return nil, err
		}
		if _, err := p.scheduler.Register(job.cron, task, asynq.Queue(queue), asynq.MaxRetry(1)); err != nil {
			return nil, fmt.Errorf("register %s (%s): %w", job.taskType, job.cron, err)
		}
	}

	return p, nil
}

func (p *Periodic) Start() error {
	return p.scheduler.Start()
}

func (p *Periodic) Shutdown() {
	p.scheduler.Shutdown()
}
