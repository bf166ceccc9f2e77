// Package messages is the durable log of every outreach attempt and its outcome.
package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prospector_backend/internal/leads/domain"
)

var ErrNotFound = errors.New("message not found")

// Message is one delivery attempt on one channel. Content is immutable; only the
// delivery columns change after creation.
type Message struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Type        domain.MessageType
	Channel     domain.Channel
	Subject     *string
	Body        string
	Status      domain.MessageStatus
	RetryCount  int
	Error       *string
	ScheduledAt time.Time
	SentAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateParams struct {
	LeadID  uuid.UUID
	Type    domain.MessageType
	Channel domain.Channel
	Subject *string
	Body    string
}

// Delivery is the outcome of dispatching a pending message.
type Delivery struct {
	Status     domain.MessageStatus
	RetryCount int
	Error      string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `id, lead_id, type, channel, subject, body, status, retry_count, error,
	scheduled_at, sent_at, created_at, updated_at`

func scanMessage(row pgx.Row) (Message, error) {
	var (
		m                    Message
		typ, channel, status string
	)
	err := row.Scan(&m.ID, &m.LeadID, &typ, &channel, &m.Subject, &m.Body, &status, &m.RetryCount, &m.Error,
		&m.ScheduledAt, &m.SentAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	m.Type = domain.MessageType(typ)
	m.Channel = domain.Channel(channel)
	m.Status = domain.MessageStatus(status)
	return m, nil
}

// Create stores a pending message.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO messages (lead_id, type, channel, subject, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns,
		p.LeadID, string(p.Type), string(p.Channel), p.Subject, p.Body))
	if err != nil {
		return Message{}, fmt.Errorf("create %s message: %w", p.Channel, err)
	}
	return m, nil
}

// RecordDelivery finalizes a pending message. A message that was cancelled in the
// meantime keeps its cancelled status.
func (r *Repository) RecordDelivery(ctx context.Context, id uuid.UUID, d Delivery) error {
	var errText *string
	if d.Error != "" {
		errText = &d.Error
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE messages SET
			status = $2,
			retry_count = $3,
			error = $4,
			sent_at = CASE WHEN $2::text = 'sent' THEN now() ELSE sent_at END,
			updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, string(d.Status), d.RetryCount, errText)
	if err != nil {
		return fmt.Errorf("record delivery for message %s: %w", id, err)
	}
	return nil
}

// CancelPendingForLead marks every still-pending message of a lead cancelled.
func (r *Repository) CancelPendingForLead(ctx context.Context, leadID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET status = 'cancelled', updated_at = now()
		WHERE lead_id = $1 AND status = 'pending'
	`, leadID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SentPitchChannels lists the channels a pitch for the lead was delivered on.
func (r *Repository) SentPitchChannels(ctx context.Context, leadID uuid.UUID) ([]domain.Channel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT channel FROM messages
		WHERE lead_id = $1 AND type = 'pitch' AND status = 'sent'
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list sent pitch channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, fmt.Errorf("scan sent pitch channel: %w", err)
		}
		channels = append(channels, domain.Channel(ch))
	}
	return channels, rows.Err()
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
