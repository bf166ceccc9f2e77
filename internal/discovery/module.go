package discovery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apphttp "prospector_backend/internal/http"
	"prospector_backend/internal/scheduler"
	"prospector_backend/platform/apperr"
	"prospector_backend/platform/httpkit"
)

const manualScanDedupe = 10 * time.Minute

// JobQueue enqueues background jobs.
type JobQueue interface {
	EnqueueJob(ctx context.Context, taskType string, payload any, uniqueFor time.Duration) error
}

// Module lets the operator start a scan outside the schedule.
type Module struct {
	jobs JobQueue
}

func NewModule(jobs JobQueue) *Module {
	return &Module{jobs: jobs}
}

func (m *Module) Name() string { return "discovery" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/scans", m.TriggerScan)
}

// TriggerScan queues a manual scan. The worker runs it regardless of the auto-scan toggle.
func (m *Module) TriggerScan(c *gin.Context) {
	err := m.jobs.EnqueueJob(c.Request.Context(), scheduler.TaskScanRun,
		scheduler.ScanRunPayload{Trigger: "manual"}, manualScanDedupe)
	if errors.Is(err, scheduler.ErrTaskExists) {
		httpkit.Error(c, http.StatusConflict, "a manual scan is already queued", nil)
		return
	}
	if err != nil {
		httpkit.HandleError(c, apperr.Unavailable("task queue unavailable", err).WithOp("discovery.trigger_scan"))
		return
	}
	httpkit.Accepted(c, gin.H{"status": "queued"})
}

var _ apphttp.Module = (*Module)(nil)
