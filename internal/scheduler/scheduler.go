// Package scheduler drives the pull-and-merge loop: every registered source
// adapter runs once per cycle, in parallel and isolated from its siblings,
// and each successful snapshot is handed to the correlator and recorder.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oddspulse/oddspulse/internal/adapters"
	"github.com/oddspulse/oddspulse/internal/correlator"
	"github.com/oddspulse/oddspulse/internal/history"
	"github.com/oddspulse/oddspulse/internal/pkg/broadcast"
	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/export"
	"github.com/oddspulse/oddspulse/internal/pkg/metrics"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
	"github.com/oddspulse/oddspulse/internal/pkg/storage"
)

// Deps are the collaborators one Scheduler drives. Store, Recorder, Statuses
// and Bus are required; a nil optional field disables that concern.
type Deps struct {
	Store    *correlator.Store
	Recorder *history.Recorder
	Statuses *StatusTable
	Bus      *broadcast.Bus

	Events   storage.EventStorage  // canonical event persistence
	Runs     storage.StatusStorage // durable run statuses
	Cache    *storage.RedisClient  // visible-events cache
	Feed     *broadcast.KafkaFeed  // odds update feed
	Archiver *export.Archiver      // raw snapshot archive
	Metrics  *metrics.Metrics
}

type Scheduler struct {
	cfg  *config.Config
	deps Deps
	log  *slog.Logger

	trigger chan struct{}
	inCycle atomic.Bool
}

func New(cfg *config.Config, deps Deps, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		deps:    deps,
		log:     log,
		trigger: make(chan struct{}, 1),
	}
}

// Run executes an immediate first cycle, then one cycle per interval until
// the context is cancelled. A manual trigger starts the next cycle early.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("Starting scheduler", "interval", s.cfg.Scheduler.Interval)
	s.RunCycle(ctx)

	timer := time.NewTimer(s.cfg.Scheduler.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stopping scheduler")
			return
		case <-s.trigger:
			s.log.Info("Manual cycle trigger")
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		s.RunCycle(ctx)
		s.drainTrigger()
		timer.Reset(s.cfg.Scheduler.Interval)
	}
}

// RunStandalone is the unattended loop: like Run, but a cycle where every
// source fails backs off exponentially instead of keeping the base cadence.
// onFailure fires when a failure streak starts, onRecovery when it ends;
// either hook may be nil.
func (s *Scheduler) RunStandalone(ctx context.Context, onFailure func(error), onRecovery func()) {
	interval := s.cfg.Scheduler.Interval
	backoff := NewBackoff(interval, s.cfg.Scheduler.BackoffCeiling)
	s.log.Info("Starting scheduler in standalone mode", "interval", interval)

	for {
		_, err := s.RunCycle(ctx)
		if ctx.Err() != nil {
			s.log.Info("Stopping scheduler")
			return
		}

		delay := interval
		if err != nil {
			delay = backoff.Fail()
			s.log.Error("Cycle failed, backing off",
				"attempt", backoff.Failures(), "retry_in", delay, "error", err)
			if backoff.Failures() == 1 && onFailure != nil {
				onFailure(err)
			}
		} else {
			if backoff.Failures() > 0 && onRecovery != nil {
				onRecovery()
			}
			backoff.Reset()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("Stopping scheduler")
			return
		case <-s.trigger:
			timer.Stop()
			s.log.Info("Manual cycle trigger")
		case <-timer.C:
		}
	}
}

// TriggerNow requests an immediate cycle. Returns false when a cycle is
// already in flight; that cycle satisfies the request, nothing is queued.
func (s *Scheduler) TriggerNow() bool {
	if s.inCycle.Load() {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// drainTrigger discards a trigger that arrived during the cycle that just
// ran, which already satisfied it.
func (s *Scheduler) drainTrigger() {
	select {
	case <-s.trigger:
	default:
	}
}

type sourceOutcome struct {
	records int
	results []correlator.MergeResult
	err     error
}

// RunCycle runs one full pull-and-merge pass and returns its stats. The
// error is non-nil only when no source delivered a snapshot; partial
// failures surface through the stats and the event stream instead.
func (s *Scheduler) RunCycle(ctx context.Context) (broadcast.CycleStats, error) {
	s.inCycle.Store(true)
	defer s.inCycle.Store(false)

	cycleID := uuid.New().String()
	started := time.Now()

	byCode := s.enabledAdapters()
	if len(byCode) == 0 {
		s.log.Warn("No adapters enabled, skipping cycle", "cycle", cycleID)
		return broadcast.CycleStats{}, errors.New("no adapters enabled")
	}
	s.log.Info("Cycle started", "cycle", cycleID, "sources", len(byCode))

	var (
		mu      sync.Mutex
		stats   = broadcast.CycleStats{Sources: len(byCode)}
		changed = make(map[int64]struct{})
		updates []broadcast.OddsUpdate
	)

	var wg sync.WaitGroup
	for code, adapter := range byCode {
		wg.Add(1)
		go func(code string, adapter adapters.Adapter) {
			defer wg.Done()
			outcome := s.runSource(ctx, cycleID, code, adapter)

			mu.Lock()
			defer mu.Unlock()
			if outcome.err != nil {
				stats.Failed++
				return
			}
			stats.Records += outcome.records
			for _, res := range outcome.results {
				switch res.Outcome {
				case correlator.OutcomeCreated:
					stats.Created++
				case correlator.OutcomeUpdated:
					stats.Updated++
				case correlator.OutcomeUnchanged:
					stats.Unchanged++
				case correlator.OutcomePending:
					stats.Pending++
				case correlator.OutcomeExcluded:
					stats.Excluded++
				}
				if res.Outcome == correlator.OutcomeCreated || res.Outcome == correlator.OutcomeUpdated {
					changed[res.EventID] = struct{}{}
					updates = append(updates, oddsUpdate(res))
				}
			}
		}(code, adapter)
	}
	wg.Wait()

	s.publish(broadcast.Event{Kind: broadcast.AllSourcesCompleted, CycleID: cycleID, At: time.Now()})

	s.persistChanged(ctx, changed)
	s.publishUpdates(ctx, updates)
	s.cacheVisible(ctx)

	storeStats := s.deps.Store.Stats()
	stats.Canonical = storeStats.Canonical
	stats.Visible = storeStats.Visible
	stats.Duration = time.Since(started)
	s.publish(broadcast.Event{Kind: broadcast.CorrelationCompleted, CycleID: cycleID, Stats: &stats, At: time.Now()})

	if m := s.deps.Metrics; m != nil {
		m.CyclesTotal.Inc()
		m.VisibleEvents.Set(float64(storeStats.Visible))
		m.PendingEvents.Set(float64(storeStats.Pending))
		m.CycleDuration.Observe(stats.Duration.Seconds())
	}

	s.log.Info("Cycle completed",
		"cycle", cycleID,
		"duration", stats.Duration.Round(time.Millisecond),
		"records", stats.Records,
		"created", stats.Created,
		"updated", stats.Updated,
		"failed_sources", stats.Failed,
		"visible", stats.Visible)

	if stats.Failed == stats.Sources {
		return stats, fmt.Errorf("all %d sources failed", stats.Sources)
	}
	return stats, nil
}

// runSource fetches, archives and merges one bookmaker's snapshot. All
// failure handling stays inside so one source never aborts its siblings.
func (s *Scheduler) runSource(ctx context.Context, cycleID, code string, adapter adapters.Adapter) sourceOutcome {
	started := time.Now()
	s.publish(broadcast.Event{Kind: broadcast.SourceStarted, CycleID: cycleID, Bookmaker: code, At: started})

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.AdapterTimeout)
	defer cancel()
	records, err := adapter.FetchSnapshot(fetchCtx)
	duration := time.Since(started)

	if err != nil {
		s.log.Error("Source fetch failed",
			"cycle", cycleID, "bookmaker", code, "duration", duration.Round(time.Millisecond), "error", err)
		status := s.deps.Statuses.RecordFailure(code, err, duration, started)
		s.saveRunStatus(ctx, status)
		if m := s.deps.Metrics; m != nil {
			m.SourceFailures.WithLabelValues(code).Inc()
		}
		s.publish(broadcast.Event{Kind: broadcast.SourceFailed, CycleID: cycleID, Bookmaker: code, Error: err.Error(), At: time.Now()})
		return sourceOutcome{err: err}
	}

	fileSize, err := s.deps.Archiver.Write(code, records)
	if err != nil {
		s.log.Warn("Snapshot archive failed", "bookmaker", code, "error", err)
	}

	results := s.deps.Store.Merge(code, records)
	if err := s.deps.Recorder.Record(ctx, results); err != nil {
		s.log.Error("Odds history append failed", "bookmaker", code, "error", err)
	}

	status := s.deps.Statuses.RecordSuccess(code, len(records), fileSize, duration, started)
	s.saveRunStatus(ctx, status)
	if m := s.deps.Metrics; m != nil {
		m.SourceEvents.WithLabelValues(code).Set(float64(len(records)))
	}
	s.publish(broadcast.Event{Kind: broadcast.SourceCompleted, CycleID: cycleID, Bookmaker: code, EventCount: len(records), At: time.Now()})

	return sourceOutcome{records: len(records), results: results}
}

// enabledAdapters resolves the configured bookmaker codes against the
// registry at call time, so a factory swapped in at runtime takes effect on
// the next cycle without a restart.
func (s *Scheduler) enabledAdapters() map[string]adapters.Adapter {
	codes := s.cfg.Adapters.Enabled
	if len(codes) == 0 {
		codes = adapters.AvailableNames()
	}
	out := make(map[string]adapters.Adapter, len(codes))
	for _, code := range codes {
		f, ok := adapters.FactoryByName(code)
		if !ok {
			s.log.Warn("No adapter registered for configured bookmaker", "bookmaker", code)
			continue
		}
		out[code] = f(s.cfg)
	}
	return out
}

func (s *Scheduler) persistChanged(ctx context.Context, ids map[int64]struct{}) {
	if s.deps.Events == nil || len(ids) == 0 {
		return
	}
	for id := range ids {
		ev := s.deps.Store.Event(id)
		if ev == nil {
			continue
		}
		if err := s.deps.Events.UpsertEvent(ctx, ev); err != nil {
			s.log.Error("Event persist failed", "event", id, "error", err)
		}
	}
}

func (s *Scheduler) publishUpdates(ctx context.Context, updates []broadcast.OddsUpdate) {
	if s.deps.Feed == nil || len(updates) == 0 {
		return
	}
	if err := s.deps.Feed.PublishUpdates(ctx, updates); err != nil {
		s.log.Warn("Odds feed publish failed", "updates", len(updates), "error", err)
	}
}

func (s *Scheduler) cacheVisible(ctx context.Context) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.CacheEvents(ctx, s.deps.Store.CurrentEvents()); err != nil {
		s.log.Warn("Events cache refresh failed", "error", err)
	}
}

func (s *Scheduler) publish(ev broadcast.Event) {
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(ev)
	}
}

func (s *Scheduler) saveRunStatus(ctx context.Context, status models.ScraperRunStatus) {
	if s.deps.Runs == nil {
		return
	}
	if err := s.deps.Runs.SaveRunStatus(ctx, status); err != nil {
		s.log.Warn("Run status persist failed", "bookmaker", status.Bookmaker, "error", err)
	}
}

func oddsUpdate(res correlator.MergeResult) broadcast.OddsUpdate {
	return broadcast.OddsUpdate{
		EventID:   res.EventID,
		Bookmaker: res.Bookmaker,
		HomeTeam:  res.Record.HomeTeam,
		AwayTeam:  res.Record.AwayTeam,
		Market:    "1X2",
		Home:      res.Record.HomeOdds,
		Draw:      res.Record.DrawOdds,
		Away:      res.Record.AwayOdds,
		UpdatedAt: res.Record.FetchedAt,
	}
}
