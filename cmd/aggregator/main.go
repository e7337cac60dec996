package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oddspulse/oddspulse/internal/adapters"
	"github.com/oddspulse/oddspulse/internal/adapters/sporty"
	"github.com/oddspulse/oddspulse/internal/correlator"
	"github.com/oddspulse/oddspulse/internal/heartbeat"
	"github.com/oddspulse/oddspulse/internal/history"
	"github.com/oddspulse/oddspulse/internal/pkg/alerting"
	"github.com/oddspulse/oddspulse/internal/pkg/broadcast"
	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/export"
	"github.com/oddspulse/oddspulse/internal/pkg/health"
	"github.com/oddspulse/oddspulse/internal/pkg/logging"
	"github.com/oddspulse/oddspulse/internal/pkg/metrics"
	"github.com/oddspulse/oddspulse/internal/pkg/storage"
	"github.com/oddspulse/oddspulse/internal/scheduler"

	// Register all built-in adapters via init().
	_ "github.com/oddspulse/oddspulse/internal/adapters/all"
)

const defaultConfigPath = "configs/config.yaml"

type flagSet struct {
	configPath  string
	once        bool
	standalone  bool
	bookmakers  string
	noHeartbeat bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("Aggregator failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.SetupLogger(&cfg.Log, "aggregator")
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger.Info("Starting aggregator", "config", flags.configPath)

	if flags.bookmakers != "" {
		cfg.Adapters.Enabled = splitList(flags.bookmakers)
		logger.Info("Bookmaker override", "enabled", cfg.Adapters.Enabled)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(ctx, cancel)

	if cfg.Adapters.ScriptsDir != "" {
		codes, err := adapters.LoadScriptsDir(cfg.Adapters.ScriptsDir, cfg.Adapters.Timeout)
		if err != nil {
			return fmt.Errorf("failed to load script adapters: %w", err)
		}
		if len(codes) > 0 {
			logger.Info("Loaded script adapters", "bookmakers", strings.Join(codes, ", "))
		}
	}

	var pg *storage.PostgresStorage
	if cfg.Postgres.DSN != "" {
		pg, err = storage.NewPostgresStorage(&cfg.Postgres)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pg.Close()
	} else {
		logger.Warn("postgres.dsn not set, running without persistence")
	}

	store := correlator.NewStore(&cfg.Correlator, logger)
	statuses := scheduler.NewStatusTable()
	if pg != nil {
		events, err := pg.GetEvents(ctx)
		if err != nil {
			return fmt.Errorf("failed to load stored events: %w", err)
		}
		store.WarmLoad(events)
		logger.Info("Warm-loaded canonical events", "events", len(events))

		runs, err := pg.GetRunStatuses(ctx)
		if err != nil {
			return fmt.Errorf("failed to load run statuses: %w", err)
		}
		statuses.Load(runs)
	}

	var cache *storage.RedisClient
	if cfg.Redis.Addr != "" {
		cache, err = storage.NewRedisClient(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer cache.Close()
	}

	bus := broadcast.NewBus()
	defer bus.Close()
	if cache != nil {
		publisher := broadcast.NewRedisPublisher(cache.Client(), cfg.Redis.EventsChannel, logger)
		go publisher.Run(ctx, bus)
	}

	var feed *broadcast.KafkaFeed
	if len(cfg.Kafka.Brokers) > 0 {
		feed, err = broadcast.NewKafkaFeed(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("failed to open kafka feed: %w", err)
		}
		defer feed.Close()
	}

	archiver, err := export.NewArchiver(cfg.Adapters.ArchiveDir, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot archive: %w", err)
	}

	m := metrics.New()

	var historyStore storage.OddsHistoryStorage
	if pg != nil {
		historyStore = pg
	}
	recorder := history.NewRecorder(historyStore, logger)

	deps := scheduler.Deps{
		Store:    store,
		Recorder: recorder,
		Statuses: statuses,
		Bus:      bus,
		Cache:    cache,
		Feed:     feed,
		Archiver: archiver,
		Metrics:  m,
	}
	if pg != nil {
		deps.Events = pg
		deps.Runs = pg
	}
	sched := scheduler.New(cfg, deps, logger)

	if flags.once {
		stats, err := sched.RunCycle(ctx)
		if err != nil {
			return err
		}
		logger.Info("Single cycle completed",
			"sources", stats.Sources,
			"failed", stats.Failed,
			"records", stats.Records,
			"canonical", stats.Canonical,
			"visible", stats.Visible)
		return nil
	}

	if pg != nil {
		marginJob := history.NewMarginJob(pg, &cfg.History, logger)
		go marginJob.Run(ctx)
	}

	var tracker *heartbeat.Tracker
	if !flags.noHeartbeat {
		if src := liveSource(cfg, logger); src != nil {
			tracker = heartbeat.NewTracker(src, &cfg.Heartbeat, m, logger)
			if err := tracker.Start(ctx); err != nil {
				return fmt.Errorf("failed to start heartbeat tracker: %w", err)
			}
			defer tracker.Stop()
		}
	}

	healthDeps := health.Deps{
		Statuses: statuses,
		Events:   store,
		Trigger:  sched.TriggerNow,
		Registry: m.Registry,
	}
	if pg != nil {
		healthDeps.History = pg
	}
	if tracker != nil {
		healthDeps.Live = tracker
	}
	healthSrv := health.New(&cfg.Health, healthDeps, logger)
	go func() {
		if err := healthSrv.Run(ctx); err != nil {
			logger.Error("Health server failed", "error", err)
		}
	}()

	if flags.standalone {
		notifier := alerting.New(&cfg.Telegram, logger)
		sched.RunStandalone(ctx, notifier.SendError, notifier.SendRecovery)
	} else {
		sched.Run(ctx)
	}

	logger.Info("Aggregator stopped gracefully")
	return nil
}

func parseFlags() flagSet {
	var flags flagSet

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&flags.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.BoolVar(&flags.once, "once", false, "Run a single pull-and-merge cycle and exit")
	flag.BoolVar(&flags.standalone, "standalone", false, "Unattended mode: back off on full-cycle failure and send Telegram alerts")
	flag.StringVar(&flags.bookmakers, "bookmakers", "", "Override adapters.enabled: comma-separated bookmaker codes. Empty = use config")
	flag.BoolVar(&flags.noHeartbeat, "no-heartbeat", false, "Disable the live heartbeat tracker")
	flag.Parse()
	return flags
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// liveSource maps the configured heartbeat source to its client. Sporty is
// the only bookmaker with a usable live feed so far.
func liveSource(cfg *config.Config, log *slog.Logger) heartbeat.LiveSource {
	switch cfg.Heartbeat.Source {
	case "":
		return nil
	case "sporty":
		return sporty.NewLiveClient(cfg)
	default:
		log.Warn("Unknown live source, heartbeat disabled", "source", cfg.Heartbeat.Source)
		return nil
	}
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping aggregator...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()
}
