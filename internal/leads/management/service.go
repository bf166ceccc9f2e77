// Package management handles the read side of the lead pipeline and operator edits
// that do not involve the lifecycle state machine.
package management

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/internal/leads/transport"
	"prospector_backend/internal/messages"
	"prospector_backend/internal/replies"
	"prospector_backend/platform/apperr"
)

const (
	defaultPageSize     = 25
	detailActivityLimit = 100
)

// Repository is the part of the lead store the management service needs.
type Repository interface {
	repository.LeadReader
	repository.MetricsReader
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (repository.Lead, error)
}

// MessageReader lists the outreach history of a lead.
type MessageReader interface {
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]messages.Message, error)
}

// ReplyReader lists inbound replies of a lead.
type ReplyReader interface {
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]replies.Reply, error)
}

// ActivityStore reads and writes the audit trail.
type ActivityStore interface {
	List(ctx context.Context, leadID *uuid.UUID, limit int) ([]activity.Entry, error)
	Record(ctx context.Context, leadID *uuid.UUID, kind activity.Kind, message string, metadata map[string]any) error
}

// Service handles lead reads and notes.
type Service struct {
	repo     Repository
	messages MessageReader
	replies  ReplyReader
	activity ActivityStore
}

// New creates a new lead management service.
func New(repo Repository, msgs MessageReader, reps ReplyReader, act ActivityStore) *Service {
	return &Service{repo: repo, messages: msgs, replies: reps, activity: act}
}

// List returns a page of leads, newest first.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	params := repository.ListParams{
		Search: req.Search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation(err.Error())
		}
		params.Status = &status
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetByID returns a lead with its messages, replies and activity.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadDetailResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadDetailResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadDetailResponse{}, err
	}

	msgs, err := s.messages.ListByLead(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	reps, err := s.replies.ListByLead(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	entries, err := s.activity.List(ctx, &id, detailActivityLimit)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}

	return transport.LeadDetailResponse{
		Lead:     ToLeadResponse(lead),
		Messages: toMessageResponses(msgs),
		Replies:  toReplyResponses(reps),
		Activity: toActivityResponses(entries),
	}, nil
}

// UpdateNotes replaces the operator notes of a lead.
func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, req transport.UpdateNotesRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.UpdateNotes(ctx, id, req.Notes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, fmt.Errorf("update notes: %w", err)
	}

	_ = s.activity.Record(ctx, &id, activity.KindNotesUpdated, "Notes updated", map[string]any{"length": len(req.Notes)})
	return ToLeadResponse(lead), nil
}

// PipelineCounts returns the number of leads per status.
func (s *Service) PipelineCounts(ctx context.Context) (transport.PipelineCountsResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return transport.PipelineCountsResponse{}, err
	}
	out := transport.PipelineCountsResponse{Counts: make(map[string]int, len(counts))}
	for status, n := range counts {
		out.Counts[string(status)] = n
		out.Total += n
	}
	return out, nil
}
