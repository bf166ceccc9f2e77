package scheduler

import (
	"context"
	"time"

	"prospector_backend/platform/logger"
)

const (
	defaultRetentionInterval = time.Hour
	defaultActivityRetention = 180 * 24 * time.Hour
)

// Pruner deletes rows older than a cutoff.
type Pruner interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// RetentionSweep periodically removes old activity entries.
type RetentionSweep struct {
	pruner    Pruner
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewRetentionSweep(pruner Pruner, log *logger.Logger, interval, retention time.Duration) *RetentionSweep {
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	if retention <= 0 {
		retention = defaultActivityRetention
	}

	return &RetentionSweep{
		pruner:    pruner,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

func (s *RetentionSweep) Run(ctx context.Context) {
	if s == nil || s.pruner == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RetentionSweep) sweep(ctx context.Context) {
	deleted, err := s.pruner.DeleteBefore(ctx, s.now().Add(-s.retention))
	if err != nil {
		s.log.Warn("activity retention sweep failed", "error", err)
		return
	}

	if deleted > 0 {
		s.log.Info("activity retention sweep deleted entries", "deleted", deleted)
	}
}
