package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"prospector_backend/internal/bootstrap"
	"prospector_backend/internal/errtrack"
	"prospector_backend/internal/inbox"
	"prospector_backend/internal/scheduler"
	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "version", version)

	flush, err := errtrack.Init(cfg, version)
	if err != nil {
		log.Error("failed to initialize error tracking", "error", err)
	} else {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		panic("bootstrap failed: " + err.Error())
	}
	defer c.Close()

	go c.Settings.Watch(ctx)

	orch := c.Leads.Orchestrator()
	worker, err := scheduler.NewWorker(cfg, orch, errtrack.NewReporter(c.Activity, log), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	worker.HandleJob(scheduler.TaskPitchBatch, orch.RunPitchBatchJob)
	worker.HandleJob(scheduler.TaskScanRun, c.Scan.RunScanJob)
	worker.HandleJob(scheduler.TaskDailyBriefing, c.Notification.SendDailyBriefing)

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	if err := periodic.Start(); err != nil {
		log.Error("failed to start periodic scheduler", "error", err)
		panic("failed to start periodic scheduler: " + err.Error())
	}
	defer periodic.Shutdown()

	if cfg.IsIMAPEnabled() {
		var archive inbox.Archiver
		if c.Archive != nil {
			archive = c.Archive
		}
		poller := inbox.NewPoller(inbox.IMAPDialer(cfg), c.ReplyRouter, archive, cfg.GetIMAPPollInterval(), log)
		go poller.Run(ctx)
		log.Info("reply mailbox poller started", "mailbox", cfg.GetIMAPMailbox())
	} else {
		log.Info("IMAP not configured; email replies arrive via webhook only")
	}

	go scheduler.NewRetentionSweep(c.Activity, log, 0, 0).Run(ctx)

	worker.Run(ctx)
	log.Info("worker stopped")
}
