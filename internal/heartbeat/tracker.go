// Package heartbeat samples one live-odds source on a fast cadence and
// derives per-event availability state and uptime statistics. It runs
// independently of the snapshot scheduler.
package heartbeat

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/metrics"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// LiveSource supplies one in-play snapshot per poll.
type LiveSource interface {
	Code() string
	FetchLive(ctx context.Context) ([]models.LiveRecord, error)
}

// ErrAlreadyRunning signals that Start found the poll loop already up.
// Callers treat it as a no-op outcome, not a failure.
var ErrAlreadyRunning = errors.New("heartbeat: tracker already running")

// Tracker polls the live source and keeps per-event availability state.
// Events flip between available and suspended while listed; once absent,
// stale and either barely tracked or suspended past the threshold, they
// retire out of the active views.
type Tracker struct {
	source  LiveSource
	cfg     *config.HeartbeatConfig
	metrics *metrics.Metrics
	log     *slog.Logger

	mu     sync.RWMutex
	states map[string]*LiveEventState

	runMu   sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	now func() time.Time
}

func NewTracker(source LiveSource, cfg *config.HeartbeatConfig, m *metrics.Metrics, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		source:  source,
		cfg:     cfg,
		metrics: m,
		log:     log,
		states:  make(map[string]*LiveEventState),
		now:     time.Now,
	}
}

// Start launches the poll loop. Returns ErrAlreadyRunning when the loop is
// already up.
func (t *Tracker) Start(ctx context.Context) error {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel != nil {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running.Store(true)
	go t.loop(loopCtx, t.done)

	t.log.Info("Live heartbeat started", "source", t.source.Code(), "interval", t.cfg.Interval)
	return nil
}

// Stop halts the loop before its next tick and waits for it to exit.
// Idempotent; tracked state stays readable after stop.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel == nil {
		return
	}

	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
	t.running.Store(false)
	t.log.Info("Live heartbeat stopped")
}

// Running reports whether the poll loop is up.
func (t *Tracker) Running() bool {
	return t.running.Load()
}

func (t *Tracker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	t.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx)
		}
	}
}

func (t *Tracker) pollOnce(ctx context.Context) {
	records, err := t.source.FetchLive(ctx)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			t.log.Warn("Live poll failed", "source", t.source.Code(), "error", err)
		}
		t.recordOutage(now)
		t.updateMetricsLocked()
		return
	}

	t.applyPoll(records, now)
	t.updateMetricsLocked()
}

// applyPoll folds one successful poll into the state map. Caller holds the
// lock.
func (t *Tracker) applyPoll(records []models.LiveRecord, now time.Time) {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if records[i].ExternalID == "" {
			continue
		}
		seen[records[i].ExternalID] = struct{}{}
		t.applyRecord(records[i], now)
	}

	for id, st := range t.states {
		if _, ok := seen[id]; !ok {
			t.applyAbsence(st, now)
		}
	}
	t.prune(now)
}

func (t *Tracker) applyRecord(rec models.LiveRecord, now time.Time) {
	st, ok := t.states[rec.ExternalID]
	if !ok {
		st = &LiveEventState{EventID: rec.ExternalID, FirstSeenAt: now}
		t.states[rec.ExternalID] = st
	}

	st.Name = rec.Name
	st.Country = rec.Country
	st.Tournament = rec.Tournament
	if !rec.StartTime.IsZero() {
		st.StartTime = rec.StartTime
	}
	st.InPlay = rec.InPlay
	st.GameMinute = rec.GameMinute
	st.Period = rec.Period
	st.RecordCount++
	st.LastSeenAt = now
	st.Retired = false // reappearance cancels retirement

	if rec.Priced {
		st.Available = true
		st.ConsecutiveSuspensions = 0
	} else {
		st.Available = false
		st.ConsecutiveSuspensions++
	}
	t.appendSample(st, Sample{At: now, Available: rec.Priced})
}

// applyAbsence marks a tracked event missing from the poll as suspended and
// retires it once all retirement conditions hold. Already retired events
// accumulate nothing, so their uptime history stays frozen.
func (t *Tracker) applyAbsence(st *LiveEventState, now time.Time) {
	if st.Retired {
		return
	}

	st.Available = false
	st.ConsecutiveSuspensions++
	t.appendSample(st, Sample{At: now, Available: false})

	if t.shouldRetire(st, now) {
		st.Retired = true
		t.log.Debug("Live event retired",
			"event", st.EventID, "records", st.RecordCount, "misses", st.ConsecutiveSuspensions)
	}
}

// shouldRetire holds only for events absent from the current poll: the start
// must be stale and the event either insufficiently tracked or suspended
// past the threshold. Provider-prefixed ids skip the low-record arm, their
// events are tracked through a separate channel.
func (t *Tracker) shouldRetire(st *LiveEventState, now time.Time) bool {
	if st.StartTime.IsZero() || now.Sub(st.StartTime) <= t.cfg.StaleAfter {
		return false
	}
	if st.ConsecutiveSuspensions >= t.cfg.SuspensionThreshold {
		return true
	}
	return st.RecordCount < t.cfg.LowRecordThreshold && !t.hasProviderPrefix(st.EventID)
}

func (t *Tracker) hasProviderPrefix(id string) bool {
	for _, p := range t.cfg.ProviderPrefixes {
		if p != "" && strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// recordOutage appends a suspended sample to every active state without
// touching counters: a failed poll says nothing about individual events.
// Caller holds the lock.
func (t *Tracker) recordOutage(now time.Time) {
	for _, st := range t.states {
		if st.Retired {
			continue
		}
		t.appendSample(st, Sample{At: now, Available: false})
	}
}

func (t *Tracker) appendSample(st *LiveEventState, s Sample) {
	st.Samples = append(st.Samples, s)
	if limit := t.cfg.SampleCap; limit > 0 && len(st.Samples) > limit {
		copy(st.Samples, st.Samples[len(st.Samples)-limit:])
		st.Samples = st.Samples[:limit]
	}
}

// prune drops states not seen within the retention window. Caller holds the
// lock.
func (t *Tracker) prune(now time.Time) {
	if t.cfg.RetainFor <= 0 {
		return
	}
	for id, st := range t.states {
		if now.Sub(st.LastSeenAt) > t.cfg.RetainFor {
			delete(t.states, id)
		}
	}
}

func (t *Tracker) updateMetricsLocked() {
	if t.metrics == nil {
		return
	}
	available := 0
	for _, st := range t.states {
		if !st.Retired && st.Available {
			available++
		}
	}
	t.metrics.LiveTracked.Set(float64(len(t.states)))
	t.metrics.LiveAvailable.Set(float64(available))
}

// Snapshot returns copies of all tracked events plus aggregate counts,
// most recently seen first.
func (t *Tracker) Snapshot() TrackerSnapshot {
	snap := TrackerSnapshot{Running: t.running.Load(), Source: t.source.Code()}

	t.mu.RLock()
	defer t.mu.RUnlock()

	snap.Tracked = len(t.states)
	snap.Events = make([]LiveEventState, 0, len(t.states))
	for _, st := range t.states {
		if !st.Retired {
			snap.Active++
			if st.Available {
				snap.Available++
			}
		}
		snap.Events = append(snap.Events, *st.clone())
	}
	sort.Slice(snap.Events, func(i, j int) bool {
		if !snap.Events[i].LastSeenAt.Equal(snap.Events[j].LastSeenAt) {
			return snap.Events[i].LastSeenAt.After(snap.Events[j].LastSeenAt)
		}
		return snap.Events[i].EventID < snap.Events[j].EventID
	})
	return snap
}

// History returns a copy of the event's sample series. Unknown events get
// an empty slice, never nil or an error.
func (t *Tracker) History(eventID string) []Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.states[eventID]
	if !ok {
		return []Sample{}
	}
	out := make([]Sample, len(st.Samples))
	copy(out, st.Samples)
	return out
}

// Uptime computes availability from the retained samples. Unknown events
// and empty series return the zero stats, never an error.
func (t *Tracker) Uptime(eventID string) UptimeStats {
	stats := UptimeStats{EventID: eventID}

	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.states[eventID]
	if !ok {
		return stats
	}
	for _, s := range st.Samples {
		stats.Total++
		if s.Available {
			stats.Available++
		}
	}
	if stats.Total > 0 {
		stats.UptimePercent = float64(stats.Available) / float64(stats.Total) * 100
	}
	return stats
}
