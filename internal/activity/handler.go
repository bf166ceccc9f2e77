package activity

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apphttp "prospector_backend/internal/http"
	"prospector_backend/platform/httpkit"
)

// Feed reads the audit trail for the dashboard.
type Feed interface {
	List(ctx context.Context, leadID *uuid.UUID, limit int) ([]Entry, error)
	ListScanRuns(ctx context.Context, limit int) ([]ScanRun, error)
}

type feedQuery struct {
	LeadID string `form:"leadId"`
	Limit  int    `form:"limit"`
}

// Module serves the activity feed and scan run history.
type Module struct {
	feed Feed
}

func NewModule(feed Feed) *Module {
	return &Module{feed: feed}
}

func (m *Module) Name() string { return "activity" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/activity", m.List)
	ctx.Protected.GET("/scan-runs", m.ScanRuns)
}

// List returns the newest activity, optionally for one lead.
func (m *Module) List(c *gin.Context) {
	var q feedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	var leadID *uuid.UUID
	if q.LeadID != "" {
		id, err := uuid.Parse(q.LeadID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
			return
		}
		leadID = &id
	}

	entries, err := m.feed.List(c.Request.Context(), leadID, q.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": entries})
}

func (m *Module) ScanRuns(c *gin.Context) {
	var q feedQuery
	_ = c.ShouldBindQuery(&q)
	runs, err := m.feed.ListScanRuns(c.Request.Context(), q.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": runs})
}

var _ apphttp.Module = (*Module)(nil)
