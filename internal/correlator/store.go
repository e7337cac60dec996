package correlator

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// pendingEvent is a single-source sighting held back until a second
// bookmaker corroborates it. It carries the raw record so the odds can be
// recorded once the event is promoted.
type pendingEvent struct {
	bookmaker string
	record    models.RawEventRecord
	normID    string
	key       string
}

// Stats is a point-in-time census of the store.
type Stats struct {
	Canonical int `json:"canonical"`
	Pending   int `json:"pending"`
	Visible   int `json:"visible"`
}

// Store holds canonical events and the indexes the matcher runs on. All
// mutation happens inside Merge under one lock; reads hand out deep copies
// so callers never share maps with the store.
type Store struct {
	mu sync.RWMutex

	events     map[int64]*models.CanonicalEvent
	byExternal map[string]int64   // "bookmaker|normID" -> event id
	byNormID   map[string]int64   // numeric normID -> event id, cross-bookmaker
	byNameKey  map[string][]int64 // fuzzy key -> candidate event ids

	pending map[int64]*pendingEvent
	nextPD  int64

	nextID int64

	minBookmakers int
	timeTolerance time.Duration
	staleAfter    time.Duration
	excluded      []string

	log *slog.Logger
	now func() time.Time
}

func NewStore(cfg *config.CorrelatorConfig, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		events:        make(map[int64]*models.CanonicalEvent),
		byExternal:    make(map[string]int64),
		byNormID:      make(map[string]int64),
		byNameKey:     make(map[string][]int64),
		pending:       make(map[int64]*pendingEvent),
		nextPD:        1,
		nextID:        1,
		minBookmakers: cfg.MinBookmakers,
		timeTolerance: cfg.TimeTolerance,
		staleAfter:    cfg.StaleAfter,
		excluded:      cfg.ExcludedTournaments,
		log:           log,
		now:           time.Now,
	}
}

// WarmLoad seeds the store from persisted events, rebuilding all matching
// indexes. Meant for startup, before the first merge cycle.
func (s *Store) WarmLoad(events []models.CanonicalEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range events {
		ev := events[i].Clone()
		if ev.ID <= 0 {
			continue
		}
		s.events[ev.ID] = ev
		s.indexEvent(ev)
		if ev.ID >= s.nextID {
			s.nextID = ev.ID + 1
		}
	}
	s.log.Info("Event store warm-loaded", "events", len(s.events))
}

// indexEvent registers the event in all matching indexes. Caller holds the
// lock.
func (s *Store) indexEvent(ev *models.CanonicalEvent) {
	for bookmaker, externalID := range ev.ExternalIDs {
		normID := normalizeExternalID(externalID)
		if normID == "" {
			continue
		}
		s.byExternal[bookmaker+"|"+normID] = ev.ID
		if hasDigits(normID) {
			if _, taken := s.byNormID[normID]; !taken {
				s.byNormID[normID] = ev.ID
			}
		}
	}
	if key := nameKey(ev.Sport, ev.HomeTeam, ev.AwayTeam, ev.Name); key != "" {
		s.byNameKey[key] = appendID(s.byNameKey[key], ev.ID)
	}
}

// indexEntry registers one new bookmaker entry on an existing event. Caller
// holds the lock.
func (s *Store) indexEntry(ev *models.CanonicalEvent, bookmaker, externalID string) {
	normID := normalizeExternalID(externalID)
	if normID == "" {
		return
	}
	s.byExternal[bookmaker+"|"+normID] = ev.ID
	if hasDigits(normID) {
		if _, taken := s.byNormID[normID]; !taken {
			s.byNormID[normID] = ev.ID
		}
	}
}

func appendID(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// CurrentEvents returns deep copies of the publishable events: those priced
// by at least minBookmakers distinct sources and not yet stale. Sorted by
// most recently updated first.
func (s *Store) CurrentEvents() []models.CanonicalEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]models.CanonicalEvent, 0, len(s.events))
	for _, ev := range s.events {
		if len(ev.Odds) < s.minBookmakers {
			continue
		}
		if s.isStale(ev.StartTime, now) {
			continue
		}
		out = append(out, *ev.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Event returns a deep copy of one canonical event regardless of its
// visibility, or nil when the id is unknown.
func (s *Store) Event(id int64) *models.CanonicalEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil
	}
	return ev.Clone()
}

// Stats counts canonical, pending and currently visible events.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	visible := 0
	for _, ev := range s.events {
		if len(ev.Odds) >= s.minBookmakers && !s.isStale(ev.StartTime, now) {
			visible++
		}
	}
	return Stats{
		Canonical: len(s.events),
		Pending:   len(s.pending),
		Visible:   visible,
	}
}

// isStale reports whether an event's start time is far enough in the past
// to drop it from the visible list. Events without a start time never go
// stale on their own.
func (s *Store) isStale(start, now time.Time) bool {
	if start.IsZero() {
		return false
	}
	return now.Sub(start) > s.staleAfter
}

// pruneStalePending drops held single-source sightings whose start time has
// passed beyond the staleness window. Canonical events are never deleted;
// pending ones were never published, so there is nothing to retain. Caller
// holds the lock.
func (s *Store) pruneStalePending(now time.Time) {
	for id, p := range s.pending {
		if s.isStale(p.record.StartTime, now) {
			delete(s.pending, id)
		}
	}
}
