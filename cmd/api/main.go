package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/bootstrap"
	"prospector_backend/internal/discovery"
	"prospector_backend/internal/dispatch"
	"prospector_backend/internal/errtrack"
	apphttp "prospector_backend/internal/http"
	"prospector_backend/internal/http/router"
	"prospector_backend/internal/scheduler"
	"prospector_backend/internal/settings"
	"prospector_backend/internal/webhook"
	"prospector_backend/platform/config"
	"prospector_backend/platform/db"
	"prospector_backend/platform/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "version", version)

	flush, err := errtrack.Init(cfg, version)
	if err != nil {
		log.Error("failed to initialize error tracking", "error", err)
	} else {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		panic("bootstrap failed: " + err.Error())
	}
	defer c.Close()

	if err := bootstrap.WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, c.Pool)
	}); err != nil {
		log.Error("failed to run migrations", "error", err)
		panic("failed to run migrations: " + err.Error())
	}

	// Cross-process settings changes arrive over Redis pub/sub.
	go c.Settings.Watch(ctx)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   c.Pool,
		EventBus: c.Bus,
		Modules: []apphttp.Module{
			c.Leads,
			webhook.NewModule(c.ReplyRouter, c.Archive, cfg.GetWebhookSecret(), log),
			c.Notification,
			settings.NewModule(c.Settings),
			activity.NewModule(c.Activity),
			discovery.NewModule(c.Queue),
			dispatch.NewModule(c.Dispatcher),
			scheduler.NewModule(c.Queue),
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}
