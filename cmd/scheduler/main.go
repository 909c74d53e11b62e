package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"builderportal_backend/internal/adapters"
	"builderportal_backend/internal/email"
	"builderportal_backend/internal/events"
	"builderportal_backend/internal/leads"
	"builderportal_backend/internal/scheduler"
	"builderportal_backend/internal/sheets"
	"builderportal_backend/platform/config"
	"builderportal_backend/platform/db"
	"builderportal_backend/platform/logger"
	"builderportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "interval", cfg.SheetSyncInterval.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = db.NewPool(ctx, cfg)
		if err == nil {
			break
		}
		log.Warn("database connection failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt*attempt) * 2 * time.Second):
		}
	}
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sheetsClient, err := sheets.NewClient(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize sheets client", "error", err)
		panic("failed to initialize sheets client: " + err.Error())
	}

	sender := email.Sender(email.NewNoopSender(log))
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
			cfg.GetEmailTeamInbox(),
		)
	}
	notifier := adapters.NewAssignmentNotifier(sender, log)

	leadsModule, err := leads.NewModule(pool, eventBus, sheetsClient, sheetsClient, notifier, cfg, validator.New(), log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, leadsModule.SyncService(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	log.Info("scheduler worker running")
	worker.Run(ctx)
	log.Info("scheduler stopped")
}
