// Package http wires domain modules into the gin router of the operator API.
package http

import (
	"context"

	"prospector_backend/internal/events"
	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"
)

type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/ready. *pgxpool.Pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what cmd/api assembles and router.New consumes.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
