package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"prospector_backend/internal/leads/management"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/internal/leads/transport"
	"prospector_backend/platform/httpkit"
	"prospector_backend/platform/validator"
)

// Lifecycle is the part of the orchestrator driven by operator actions.
type Lifecycle interface {
	PitchLead(ctx context.Context, leadID uuid.UUID) (PitchOutcome, error)
	MarkConverted(ctx context.Context, leadID uuid.UUID, revenue float64) (repository.Lead, error)
	MarkArchived(ctx context.Context, leadID uuid.UUID, reason string) (repository.Lead, error)
	SchedulePitchBatch(ctx context.Context, limit int, trigger string) (int, error)
}

// PitchOutcome is the transport-neutral result of a manual pitch.
type PitchOutcome = transport.PitchResponse

type Handler struct {
	svc       *management.Service
	lifecycle Lifecycle
	val       *validator.Validator
}

const msgInvalidRequest = "invalid request"

func New(svc *management.Service, lifecycle Lifecycle, val *validator.Validator) *Handler {
	return &Handler{svc: svc, lifecycle: lifecycle, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/counts", h.Counts)
	rg.POST("/pitch-batch", h.PitchBatch)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id/notes", h.UpdateNotes)
	rg.POST("/:id/pitch", h.Pitch)
	rg.POST("/:id/convert", h.Convert)
	rg.POST("/:id/archive", h.Archive)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Counts(c *gin.Context) {
	result, err := h.svc.PipelineCounts(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) UpdateNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateNotesRequest
	if !httpkit.BindJSON(c, h.val, &req) {
		return
	}

	lead, err := h.svc.UpdateNotes(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Pitch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.lifecycle.PitchLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Convert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ConvertLeadRequest
	if !httpkit.BindJSON(c, h.val, &req) {
		return
	}

	lead, err := h.lifecycle.MarkConverted(c.Request.Context(), id, req.Revenue)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, management.ToLeadResponse(lead))
}

func (h *Handler) Archive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ArchiveLeadRequest
	if c.Request.ContentLength > 0 && !httpkit.BindJSON(c, h.val, &req) {
		return
	}

	lead, err := h.lifecycle.MarkArchived(c.Request.Context(), id, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, management.ToLeadResponse(lead))
}

func (h *Handler) PitchBatch(c *gin.Context) {
	var req transport.PitchBatchRequest
	if c.Request.ContentLength > 0 && !httpkit.BindJSON(c, h.val, &req) {
		return
	}

	n, err := h.lifecycle.SchedulePitchBatch(c.Request.Context(), req.Size, "manual")
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, transport.PitchBatchResponse{Scheduled: n})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
