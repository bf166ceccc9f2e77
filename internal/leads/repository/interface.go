package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"prospector_backend/internal/leads/domain"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetByEmail(ctx context.Context, email string) (Lead, error)
	GetByPhone(ctx context.Context, matchKey string) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LifecycleWriter performs guarded status changes.
type LifecycleWriter interface {
	Transition(ctx context.Context, id uuid.UUID, from []domain.Status, target domain.Status, opts TransitionOptions) (Lead, bool, error)
	ClaimPitch(ctx context.Context, id uuid.UUID, staleBefore time.Time) (Lead, bool, error)
	ReleasePitchClaim(ctx context.Context, id uuid.UUID) error
}

// DiscoveryWriter stores businesses found by scans.
type DiscoveryWriter interface {
	Upsert(ctx context.Context, p UpsertParams) (Lead, bool, error)
}

// PitchQueueReader selects leads for batch pitching.
type PitchQueueReader interface {
	ListPitchCandidates(ctx context.Context, limit int) ([]Lead, error)
}

// MetricsReader provides pipeline counts for briefings.
type MetricsReader interface {
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

// LeadsRepository composes all lead store capabilities.
type LeadsRepository interface {
	LeadReader
	LifecycleWriter
	DiscoveryWriter
	PitchQueueReader
	MetricsReader
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (Lead, error)
}

var _ LeadsRepository = (*Repository)(nil)
