// Package dbtest starts a throwaway Postgres with the schema applied, for
// repository tests built with the integration tag.
package dbtest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"prospector_backend/platform/db"
)

type databaseURL string

func (u databaseURL) GetDatabaseURL() string { return string(u) }

// Postgres is a migrated database inside a container.
type Postgres struct {
	Pool      *pgxpool.Pool
	container *postgres.PostgresContainer
}

// Start runs postgres:16-alpine, opens a pool and applies all migrations.
func Start(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("prospector_test"),
		postgres.WithUsername("prospector"),
		postgres.WithPassword("prospector"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("connection string: %w", err)
	}

	pool, err := db.NewPool(ctx, databaseURL(dsn))
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := db.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Postgres{Pool: pool, container: container}, nil
}

// Stop closes the pool and removes the container.
func (p *Postgres) Stop(ctx context.Context) error {
	p.Pool.Close()
	return p.container.Terminate(ctx)
}
