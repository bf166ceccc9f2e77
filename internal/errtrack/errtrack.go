// Package errtrack reports failures that need an operator's attention to Sentry.
// With no DSN configured every call is a no-op apart from logging.
package errtrack

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"prospector_backend/internal/activity"
	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"
)

const flushTimeout = 2 * time.Second

// Init configures the Sentry client. The returned flush must run before the process exits.
func Init(cfg config.ErrorTrackingConfig, release string) (func(), error) {
	if cfg.GetSentryDSN() == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.GetSentryDSN(),
		Environment: cfg.GetEnv(),
		Release:     release,
	}); err != nil {
		return func() {}, fmt.Errorf("init sentry: %w", err)
	}
	return func() { sentry.Flush(flushTimeout) }, nil
}

// AuditLog appends activity entries.
type AuditLog interface {
	Record(ctx context.Context, leadID *uuid.UUID, kind activity.Kind, message string, metadata map[string]any) error
}

// Reporter turns dead tasks into Sentry events and activity entries.
type Reporter struct {
	audit   AuditLog
	log     *logger.Logger
	capture func(err error, tags map[string]string, extra map[string]any)
}

func NewReporter(audit AuditLog, log *logger.Logger) *Reporter {
	return &Reporter{audit: audit, log: log, capture: captureException}
}

// ReportDeadTask records a task that exhausted its retries.
func (r *Reporter) ReportDeadTask(ctx context.Context, taskType, taskID string, attempts int, err error) {
	r.log.Error("task dead after retries", "taskType", taskType, "taskId", taskID, "attempts", attempts, "error", err)

	r.capture(err,
		map[string]string{"task_type": taskType},
		map[string]any{"task_id": taskID, "attempts": attempts})

	meta := map[string]any{
		"taskType": taskType,
		"taskId":   taskID,
		"attempts": attempts,
	}
	if err != nil {
		meta["error"] = err.Error()
	}
	if recErr := r.audit.Record(ctx, nil, activity.KindTaskDead,
		fmt.Sprintf("Task %s gave up after %d attempts", taskType, attempts), meta); recErr != nil {
		r.log.Warn("record dead task failed", "error", recErr)
	}
}

// Capture sends err to Sentry with an error_type tag.
func Capture(err error, errorType string, extra map[string]any) {
	captureException(err, map[string]string{"error_type": errorType}, extra)
}

func captureException(err error, tags map[string]string, extra map[string]any) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range extra {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Recovery reports handler panics to Sentry and answers 500.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", recovered)
		}
		log.Error("panic recovered", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		Capture(err, "panic", map[string]any{"method": c.Request.Method, "route": c.FullPath()})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
