// Package repository is the Lead Store: the single source of truth for lead
// status, with every lifecycle change applied as a guarded single-row UPDATE.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrExternalIDRequired is returned by Upsert when a discovered business has no stable id.
	ErrExternalIDRequired = errors.New("external id is required")
)

// Repository implements LeadsRepository over Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
