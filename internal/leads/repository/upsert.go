package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"prospector_backend/internal/leads/domain"
)

// UpsertParams describes a business as seen by a discovery source.
type UpsertParams struct {
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
}

// Upsert inserts a new lead or refreshes a rediscovered one. On conflict the descriptive
// fields are overwritten, while contact fields are only filled in, never cleared.
// Status and history are left untouched.
func (r *Repository) Upsert(ctx context.Context, p UpsertParams) (Lead, bool, error) {
	if strings.TrimSpace(p.ExternalID) == "" {
		return Lead{}, false, ErrExternalIDRequired
	}
	raw := p.RawSnapshot
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			external_id, name, category, location, address, email, phone, phone_normalized,
			website, website_status, rating, review_count, has_photos, raw_snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			has_photos = EXCLUDED.has_photos,
			raw_snapshot = EXCLUDED.raw_snapshot,
			email = COALESCE(EXCLUDED.email, leads.email),
			phone = COALESCE(EXCLUDED.phone, leads.phone),
			phone_normalized = COALESCE(EXCLUDED.phone_normalized, leads.phone_normalized),
			website = COALESCE(EXCLUDED.website, leads.website),
			updated_at = now()
		RETURNING `+leadColumns+`, (xmax = 0) AS inserted
	`,
		p.ExternalID, p.Name, p.Category, p.Location, p.Address, p.Email, p.Phone, p.PhoneNormalized,
		p.Website, string(p.WebsiteStatus), p.Rating, p.ReviewCount, p.HasPhotos, []byte(raw),
	)

	var inserted bool
	lead, err := scanLead(insertedRow{row: row, inserted: &inserted})
	if err != nil {
		return Lead{}, false, fmt.Errorf("upsert lead %s: %w", p.ExternalID, err)
	}
	return lead, inserted, nil
}

// insertedRow appends the trailing "inserted" column to the standard lead scan.
type insertedRow struct {
	row      pgx.Row
	inserted *bool
}

func (r insertedRow) Scan(dest ...any) error {
	return r.row.Scan(append(dest, r.inserted)...)
}
