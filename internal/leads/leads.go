// Package leads provides the lead lifecycle bounded context.
// This file defines the public API of the context. Other domains depend on the
// interfaces here, not on the orchestrator type.
package leads

import (
	"context"

	"github.com/google/uuid"

	"prospector_backend/internal/leads/repository"
)

// Lifecycle is the full set of lifecycle operations.
type Lifecycle interface {
	PitchLead(ctx context.Context, leadID uuid.UUID) (PitchResult, error)
	RunFollowup(ctx context.Context, leadID uuid.UUID, stage int) (FollowupResult, error)
	ArchiveIfUnresolved(ctx context.Context, leadID uuid.UUID) (Outcome, error)
	CancelPendingForLead(ctx context.Context, leadID uuid.UUID) (CancelResult, error)
	MarkReplied(ctx context.Context, leadID uuid.UUID) (repository.Lead, bool, error)
	MarkConverted(ctx context.Context, leadID uuid.UUID, revenue float64) (repository.Lead, error)
	MarkArchived(ctx context.Context, leadID uuid.UUID, reason string) (repository.Lead, error)
	SchedulePitchBatch(ctx context.Context, limit int, trigger string) (int, error)
}

var _ Lifecycle = (*Orchestrator)(nil)
