package replies

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prospector_backend/internal/leads/domain"
)

// Reply is an inbound answer matched to a lead. Replies are never changed or deleted.
type Reply struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Channel     domain.Channel
	FromAddress string
	Body        string
	RawPayload  string
	ArchiveKey  *string
	ReceivedAt  time.Time
}

type CreateParams struct {
	LeadID      uuid.UUID
	Channel     domain.Channel
	FromAddress string
	Body        string
	RawPayload  string
	ArchiveKey  *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const replyColumns = `id, lead_id, channel, from_address, body, raw_payload, archive_key, received_at`

func scanReply(row pgx.Row) (Reply, error) {
	var (
		r       Reply
		channel string
	)
	if err := row.Scan(&r.ID, &r.LeadID, &channel, &r.FromAddress, &r.Body, &r.RawPayload, &r.ArchiveKey, &r.ReceivedAt); err != nil {
		return Reply{}, err
	}
	r.Channel = domain.Channel(channel)
	return r, nil
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Reply, error) {
	reply, err := scanReply(r.pool.QueryRow(ctx, `
		INSERT INTO replies (lead_id, channel, from_address, body, raw_payload, archive_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+replyColumns,
		p.LeadID, string(p.Channel), p.FromAddress, p.Body, p.RawPayload, p.ArchiveKey))
	if err != nil {
		return Reply{}, fmt.Errorf("create reply: %w", err)
	}
	return reply, nil
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Reply, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+replyColumns+`
		FROM replies
		WHERE lead_id = $1
		ORDER BY received_at ASC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	var out []Reply
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		out = append(out, reply)
	}
	return out, rows.Err()
}

// CountSince is used by the daily briefing.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM replies WHERE received_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count replies: %w", err)
	}
	return n, nil
}
