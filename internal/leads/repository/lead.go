package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"prospector_backend/internal/leads/domain"
)

type Lead struct {
	ID              uuid.UUID
	ExternalID      string
	Name            string
	Category        string
	Location        string
	Address         string
	Email           *string
	Phone           *string
	PhoneNormalized *string
	Website         *string
	WebsiteStatus   domain.WebsiteStatus
	Rating          *float64
	ReviewCount     int
	HasPhotos       bool
	RawSnapshot     json.RawMessage
	Status          domain.Status
	Revenue         *float64
	Notes           string
	ArchiveReason   *string
	PitchClaimedAt  *time.Time
	PitchedAt       *time.Time
	RepliedAt       *time.Time
	ConvertedAt     *time.Time
	ArchivedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasEmail reports whether the lead can be reached by email.
func (l Lead) HasEmail() bool {
	return l.Email != nil && strings.TrimSpace(*l.Email) != ""
}

// HasPhone reports whether the lead can be reached by WhatsApp or SMS.
func (l Lead) HasPhone() bool {
	return l.Phone != nil && strings.TrimSpace(*l.Phone) != ""
}

const leadColumns = `id, external_id, name, category, location, address, email, phone, phone_normalized,
	website, website_status, rating, review_count, has_photos, raw_snapshot, status, revenue, notes,
	archive_reason, pitch_claimed_at, pitched_at, replied_at, converted_at, archived_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var (
		lead          Lead
		websiteStatus string
		status        string
	)
	err := row.Scan(
		&lead.ID, &lead.ExternalID, &lead.Name, &lead.Category, &lead.Location, &lead.Address,
		&lead.Email, &lead.Phone, &lead.PhoneNormalized,
		&lead.Website, &websiteStatus, &lead.Rating, &lead.ReviewCount, &lead.HasPhotos, &lead.RawSnapshot,
		&status, &lead.Revenue, &lead.Notes,
		&lead.ArchiveReason, &lead.PitchClaimedAt, &lead.PitchedAt, &lead.RepliedAt, &lead.ConvertedAt, &lead.ArchivedAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	lead.WebsiteStatus = domain.WebsiteStatus(websiteStatus)
	lead.Status = domain.Status(status)
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// GetByEmail returns the oldest lead whose email matches, ignoring case and surrounding space.
func (r *Repository) GetByEmail(ctx context.Context, email string) (Lead, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Lead{}, ErrNotFound
	}
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE lower(email) = lower($1)
		ORDER BY created_at ASC
		LIMIT 1
	`, email))
}

// GetByPhone returns the oldest lead whose normalized phone equals matchKey.
func (r *Repository) GetByPhone(ctx context.Context, matchKey string) (Lead, error) {
	if matchKey == "" {
		return Lead{}, ErrNotFound
	}
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE phone_normalized = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, matchKey))
}

type ListParams struct {
	Status *domain.Status
	Search string
	Limit  int
	Offset int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	var status *string
	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}
	var search *string
	if trimmed := strings.TrimSpace(params.Search); trimmed != "" {
		pattern := "%" + trimmed + "%"
		search = &pattern
	}
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR name ILIKE $2 OR category ILIKE $2 OR location ILIKE $2)
	`, status, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR name ILIKE $2 OR category ILIKE $2 OR location ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, status, search, limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return leads, total, nil
}

// ListPitchCandidates returns unclaimed new leads, oldest first.
func (r *Repository) ListPitchCandidates(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = 'new' AND pitch_claimed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pitch candidates: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// CountByStatus returns the number of leads per status.
func (r *Repository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

func (r *Repository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET notes = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, notes))
}
