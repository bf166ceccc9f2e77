package scheduler

import (
	"github.com/gin-gonic/gin"

	apphttp "prospector_backend/internal/http"
	"prospector_backend/platform/apperr"
	"prospector_backend/platform/httpkit"
)

// QueueInspector reports queue depth per task state.
type QueueInspector interface {
	Pending() (QueueStats, error)
}

// Module exposes the task queue to admins, mainly to spot dead tasks.
type Module struct {
	queue QueueInspector
}

func NewModule(queue QueueInspector) *Module {
	return &Module{queue: queue}
}

func (m *Module) Name() string { return "scheduler" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/queue", m.Stats)
}

func (m *Module) Stats(c *gin.Context) {
	stats, err := m.queue.Pending()
	if err != nil {
		httpkit.HandleError(c, apperr.Unavailable("task queue unavailable", err).WithOp("scheduler.queue_stats"))
		return
	}
	httpkit.OK(c, stats)
}

var _ apphttp.Module = (*Module)(nil)
