package settings

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	apphttp "prospector_backend/internal/http"
	"prospector_backend/platform/httpkit"
)

// Service is the settings store as seen by the HTTP layer.
type Service interface {
	Current() *Snapshot
	Update(ctx context.Context, patch map[string]json.RawMessage) (*Snapshot, error)
}

// Module exposes runtime settings to the operator.
type Module struct {
	svc Service
}

func NewModule(svc Service) *Module {
	return &Module{svc: svc}
}

func (m *Module) Name() string { return "settings" }

// RegisterRoutes mounts GET /settings for operators and PUT /settings for admins.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/settings")
	group.GET("", m.Get)
	group.PUT("", httpkit.RequireRole("admin"), m.Update)
}

func (m *Module) Get(c *gin.Context) {
	httpkit.OK(c, m.svc.Current())
}

// Update applies a partial settings document. Unknown keys and invalid values are rejected.
func (m *Module) Update(c *gin.Context) {
	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	snap, err := m.svc.Update(c.Request.Context(), patch)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, snap)
}

var _ apphttp.Module = (*Module)(nil)
