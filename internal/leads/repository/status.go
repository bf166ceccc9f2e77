package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"prospector_backend/internal/leads/domain"
)

// TransitionOptions carries the extra columns some transitions write.
type TransitionOptions struct {
	Revenue       *float64
	ArchiveReason *string
}

// Transition moves a lead to target only while its status is one of from.
// The check and the write are one UPDATE, so concurrent triggers cannot both win.
// changed is false when the guard did not match; the returned lead is then the current row.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from []domain.Status, target domain.Status, opts TransitionOptions) (Lead, bool, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			status = $2::text,
			pitched_at = CASE WHEN $2::text = 'pitched' THEN now() ELSE pitched_at END,
			replied_at = CASE WHEN $2::text = 'replied' THEN now() ELSE replied_at END,
			converted_at = CASE WHEN $2::text = 'converted' THEN now() ELSE converted_at END,
			archived_at = CASE WHEN $2::text = 'archived' THEN now() ELSE archived_at END,
			revenue = COALESCE($4, revenue),
			archive_reason = COALESCE($5, archive_reason),
			updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+leadColumns,
		id, string(target), statusStrings(from), opts.Revenue, opts.ArchiveReason,
	))
	if err == nil {
		return lead, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lead{}, false, fmt.Errorf("transition lead to %s: %w", target, err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return Lead{}, false, err
	}
	return current, false, nil
}

// ClaimPitch marks a new lead as being pitched. Only one caller can hold the claim.
// A claim older than staleBefore may be taken over, but only when no pitch message was
// ever delivered, so a crash mid-pitch cannot cause a second delivery.
func (r *Repository) ClaimPitch(ctx context.Context, id uuid.UUID, staleBefore time.Time) (Lead, bool, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET pitch_claimed_at = now(), updated_at = now()
		WHERE id = $1
		  AND status = 'new'
		  AND (
			pitch_claimed_at IS NULL
			OR (
				pitch_claimed_at < $2
				AND NOT EXISTS (
					SELECT 1 FROM messages m
					WHERE m.lead_id = leads.id AND m.type = 'pitch' AND m.status = 'sent'
				)
			)
		  )
		RETURNING `+leadColumns, id, staleBefore))
	if err == nil {
		return lead, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lead{}, false, fmt.Errorf("claim pitch: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return Lead{}, false, err
	}
	return current, false, nil
}

// ReleasePitchClaim lets a failed pitch be retried.
func (r *Repository) ReleasePitchClaim(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET pitch_claimed_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'new'
	`, id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("release pitch claim: %w", err)
	}
	return nil
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
