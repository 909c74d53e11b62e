// Command lead-sync runs one full sheet reconciliation pass and exits.
// Useful for backfills and for verifying sheet credentials from a shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"builderportal_backend/internal/events"
	"builderportal_backend/internal/leads"
	"builderportal_backend/internal/sheets"
	"builderportal_backend/platform/config"
	"builderportal_backend/platform/db"
	"builderportal_backend/platform/logger"
	"builderportal_backend/platform/validator"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "abort the pass after this long")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sheetsClient, err := sheets.NewClient(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize sheets client", "error", err)
		os.Exit(1)
	}

	leadsModule, err := leads.NewModule(pool, events.NewInMemoryBus(log), sheetsClient, sheetsClient, nil, cfg, validator.New(), log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		os.Exit(1)
	}

	summary, err := leadsModule.SyncService().RunFullSync(ctx)
	if err != nil {
		log.Error("sync failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("synced=%d skipped=%d errored=%d\n", summary.Synced, summary.Skipped, summary.Errored)
}
