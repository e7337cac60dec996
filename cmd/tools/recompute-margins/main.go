// recompute-margins rebuilds the per-tournament bookmaker margin table from
// the currently stored odds and exits. The aggregator refreshes margins on
// its own cadence; this tool forces an immediate pass, e.g. after a schema
// change or a manual history import.
//
//	go run ./cmd/tools/recompute-margins --config configs/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/oddspulse/oddspulse/internal/history"
	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/logging"
	"github.com/oddspulse/oddspulse/internal/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Margin recomputation failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.SetupLogger(&cfg.Log, "recompute-margins")
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	pg, err := storage.NewPostgresStorage(&cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	job := history.NewMarginJob(pg, &cfg.History, logger)
	if err := job.RunOnce(ctx); err != nil {
		return err
	}

	margins, err := pg.GetTournamentMargins(ctx)
	if err != nil {
		return fmt.Errorf("failed to read back margins: %w", err)
	}
	logger.Info("Margins recomputed", "rows", len(margins))
	return nil
}
