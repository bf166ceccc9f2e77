// Package activity stores the append-only audit trail and scan run history.
// Nothing here drives control flow; it feeds the dashboard and the daily briefing.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind classifies an audit entry.
type Kind string

const (
	KindPitchGenerated  Kind = "pitch_generated"
	KindPitchSent       Kind = "pitch_sent"
	KindPitchFailed     Kind = "pitch_failed"
	KindFollowupSent    Kind = "followup_sent"
	KindFollowupFailed  Kind = "followup_failed"
	KindFollowupSkipped Kind = "followup_skipped"
	KindDeliveryAttempt Kind = "delivery_attempt"
	KindReplyReceived   Kind = "reply_received"
	KindLeadConverted   Kind = "lead_converted"
	KindLeadArchived    Kind = "lead_archived"
	KindNotesUpdated    Kind = "notes_updated"
	KindScanCompleted   Kind = "scan_completed"
	KindTaskDead        Kind = "task_dead"
)

// Entry is a single audit record.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    *uuid.UUID     `json:"leadId,omitempty"`
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ScanRun records one discovery scan.
type ScanRun struct {
	ID         uuid.UUID  `json:"id"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	Found      int        `json:"found"`
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// ScanResult is the outcome written when a scan finishes.
type ScanResult struct {
	Found    int
	Inserted int
	Updated  int
	Skipped  int
	Err      error
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends an audit entry.
func (r *Repository) Record(ctx context.Context, leadID *uuid.UUID, kind Kind, message string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO activity_log (lead_id, kind, message, metadata)
		VALUES ($1, $2, $3, $4)
	`, leadID, string(kind), message, meta)
	if err != nil {
		return fmt.Errorf("record activity %s: %w", kind, err)
	}
	return nil
}

// List returns the newest entries first. A nil leadID lists across all leads.
func (r *Repository) List(ctx context.Context, leadID *uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, kind, message, metadata, created_at
		FROM activity_log
		WHERE ($1::uuid IS NULL OR lead_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e    Entry
			kind string
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.LeadID, &kind, &e.Message, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountSince returns entry counts per kind created after since.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (map[Kind]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT kind, COUNT(*) FROM activity_log WHERE created_at >= $1 GROUP BY kind
	`, since)
	if err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}
	defer rows.Close()

	counts := make(map[Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[Kind(kind)] = n
	}
	return counts, rows.Err()
}

// DeleteBefore removes entries created before the cutoff.
func (r *Repository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activity_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartScanRun opens a scan run in the running state.
func (r *Repository) StartScanRun(ctx context.Context, trigger string) (ScanRun, error) {
	var run ScanRun
	err := r.pool.QueryRow(ctx, `
		INSERT INTO scan_runs (trigger) VALUES ($1)
		RETURNING id, trigger, status, started_at
	`, trigger).Scan(&run.ID, &run.Trigger, &run.Status, &run.StartedAt)
	if err != nil {
		return ScanRun{}, fmt.Errorf("start scan run: %w", err)
	}
	return run, nil
}

// FinishScanRun closes a scan run with its counters.
func (r *Repository) FinishScanRun(ctx context.Context, id uuid.UUID, result ScanResult) error {
	status := "completed"
	var errText *string
	if result.Err != nil {
		status = "failed"
		msg := result.Err.Error()
		errText = &msg
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE scan_runs SET
			status = $2, found = $3, inserted = $4, updated = $5, skipped = $6, error = $7,
			finished_at = now()
		WHERE id = $1
	`, id, status, result.Found, result.Inserted, result.Updated, result.Skipped, errText)
	if err != nil {
		return fmt.Errorf("finish scan run: %w", err)
	}
	return nil
}

// ListScanRuns returns the most recent scan runs.
func (r *Repository) ListScanRuns(ctx context.Context, limit int) ([]ScanRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, trigger, status, found, inserted, updated, skipped, error, started_at, finished_at
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}
	defer rows.Close()

	runs := make([]ScanRun, 0)
	for rows.Next() {
		var run ScanRun
		if err := rows.Scan(&run.ID, &run.Trigger, &run.Status, &run.Found, &run.Inserted, &run.Updated,
			&run.Skipped, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
