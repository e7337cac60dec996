package correlator

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

var (
	testStart   = time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	testFetched = time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
)

func newTestStore(minBookmakers int) *Store {
	s := NewStore(&config.CorrelatorConfig{
		MinBookmakers:       minBookmakers,
		TimeTolerance:       30 * time.Minute,
		StaleAfter:          3 * time.Hour,
		ExcludedTournaments: []string{"simulated reality", "srl", "esoccer"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return testFetched }
	return s
}

func testRecord(externalID, name string, start time.Time, home, draw, away float64) models.RawEventRecord {
	return models.RawEventRecord{
		ExternalID: externalID,
		Sport:      "football",
		Country:    "England",
		Tournament: "Premier League",
		Name:       name,
		StartTime:  start,
		HomeOdds:   home,
		DrawOdds:   draw,
		AwayOdds:   away,
		FetchedAt:  testFetched,
	}
}

func TestMerge_HoldsSingleSourceSighting(t *testing.T) {
	s := newTestStore(2)

	results := s.Merge("betpawa", []models.RawEventRecord{
		testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20),
	})

	if len(results) != 1 || results[0].Outcome != OutcomePending {
		t.Fatalf("expected one pending result, got %+v", results)
	}
	if results[0].EventID != 0 {
		t.Errorf("pending record should carry no event id, got %d", results[0].EventID)
	}
	stats := s.Stats()
	if stats.Canonical != 0 || stats.Pending != 1 {
		t.Errorf("stats = %+v, want 0 canonical / 1 pending", stats)
	}
	if events := s.CurrentEvents(); len(events) != 0 {
		t.Errorf("single-source event must not be published, got %d events", len(events))
	}
}

func TestMerge_PromotesOnSecondBookmaker(t *testing.T) {
	s := newTestStore(2)

	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20),
	})
	// Sporty reports the same provider match id with an "sr:match:" prefix
	// and a dash-separated name.
	results := s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:50850679", "Arsenal - Chelsea", testStart, 1.88, 3.55, 4.10),
	})

	if len(results) != 2 {
		t.Fatalf("promotion should report both contributing bookmakers, got %d results", len(results))
	}
	for _, r := range results {
		if r.Outcome != OutcomeCreated {
			t.Errorf("result for %q = %q, want %q", r.Bookmaker, r.Outcome, OutcomeCreated)
		}
	}
	if results[0].Bookmaker != "betpawa" || results[1].Bookmaker != "sporty" {
		t.Errorf("unexpected bookmakers in results: %q, %q", results[0].Bookmaker, results[1].Bookmaker)
	}
	if results[0].EventID == 0 || results[0].EventID != results[1].EventID {
		t.Fatalf("both results should share one event id, got %d and %d", results[0].EventID, results[1].EventID)
	}

	ev := s.Event(results[0].EventID)
	if ev == nil {
		t.Fatal("promoted event not found")
	}
	if len(ev.Odds) != 2 {
		t.Fatalf("promoted event should hold both books, got %d", len(ev.Odds))
	}
	if got := ev.ExternalIDs["sporty"]; got != "sr:match:50850679" {
		t.Errorf("source id must be kept as reported, got %q", got)
	}
	if got := ev.Odds["betpawa"].Home; got != 1.85 {
		t.Errorf("betpawa home odds = %v, want 1.85", got)
	}
	stats := s.Stats()
	if stats.Canonical != 1 || stats.Pending != 0 {
		t.Errorf("stats = %+v, want 1 canonical / 0 pending", stats)
	}
}

func TestMerge_VisibleOnlyAtThreeBookmakers(t *testing.T) {
	s := newTestStore(3)

	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20),
	})
	s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:50850679", "Arsenal - Chelsea", testStart, 1.88, 3.55, 4.10),
	})

	if events := s.CurrentEvents(); len(events) != 0 {
		t.Fatalf("two books must stay below the visibility threshold, got %d events", len(events))
	}

	// Betika has its own id scheme, so the third book resolves by name.
	results := s.Merge("betika", []models.RawEventRecord{
		testRecord("BET777001", "Arsenal vs Chelsea", testStart, 1.90, 3.50, 4.00),
	})
	if len(results) != 1 || results[0].Outcome != OutcomeUpdated {
		t.Fatalf("third book should join the existing event, got %+v", results)
	}

	events := s.CurrentEvents()
	if len(events) != 1 {
		t.Fatalf("expected one visible event, got %d", len(events))
	}
	if len(events[0].Odds) != 3 {
		t.Errorf("visible event should hold three books, got %d", len(events[0].Odds))
	}
	if stats := s.Stats(); stats.Visible != 1 {
		t.Errorf("stats.Visible = %d, want 1", stats.Visible)
	}
}

func TestMerge_ReplayedSnapshotIsUnchanged(t *testing.T) {
	s := newTestStore(2)

	batch := []models.RawEventRecord{
		testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20),
	}
	s.Merge("betpawa", batch)
	s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:50850679", "Arsenal - Chelsea", testStart, 1.88, 3.55, 4.10),
	})

	before := s.Event(1)

	results := s.Merge("betpawa", batch)
	if len(results) != 1 || results[0].Outcome != OutcomeUnchanged {
		t.Fatalf("replay should be unchanged, got %+v", results)
	}

	after := s.Event(1)
	if before == nil || after == nil {
		t.Fatal("promoted event not found")
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("replay must not touch UpdatedAt: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
	if stats := s.Stats(); stats.Canonical != 1 {
		t.Errorf("replay must not create events, got %d canonical", stats.Canonical)
	}
}

func TestMerge_ReplacesOnlyThatBookmakersEntry(t *testing.T) {
	s := newTestStore(2)

	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20),
	})
	s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:50850679", "Arsenal - Chelsea", testStart, 1.88, 3.55, 4.10),
	})

	moved := testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.70, 3.80, 4.60)
	moved.FetchedAt = testFetched.Add(15 * time.Minute)
	results := s.Merge("betpawa", []models.RawEventRecord{moved})

	if len(results) != 1 || results[0].Outcome != OutcomeUpdated {
		t.Fatalf("price move should be an update, got %+v", results)
	}
	ev := s.Event(results[0].EventID)
	if ev.Odds["betpawa"].Home != 1.70 {
		t.Errorf("betpawa entry not replaced: %+v", ev.Odds["betpawa"])
	}
	if ev.Odds["sporty"].Home != 1.88 {
		t.Errorf("sporty entry must be untouched: %+v", ev.Odds["sporty"])
	}
}

func TestMerge_SameBookmakerRefreshesPending(t *testing.T) {
	s := newTestStore(2)

	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20),
	})
	refreshed := testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.95, 3.40, 3.90)
	refreshed.FetchedAt = testFetched.Add(15 * time.Minute)
	results := s.Merge("betpawa", []models.RawEventRecord{refreshed})

	if len(results) != 1 || results[0].Outcome != OutcomePending {
		t.Fatalf("re-report before corroboration should stay pending, got %+v", results)
	}
	if stats := s.Stats(); stats.Pending != 1 {
		t.Fatalf("refresh must not add a second pending, got %d", stats.Pending)
	}

	// The held record carries the latest odds into the promotion.
	promoted := s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:50850679", "Arsenal - Chelsea", testStart, 1.88, 3.55, 4.10),
	})
	ev := s.Event(promoted[0].EventID)
	if ev == nil || ev.Odds["betpawa"].Home != 1.95 {
		t.Fatalf("promotion should use refreshed odds, got %+v", ev)
	}
}

func TestMerge_ExcludesSyntheticAndPlaceholderEvents(t *testing.T) {
	s := newTestStore(2)

	srl := testRecord("111", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20)
	srl.Tournament = "Simulated Reality League Premier"
	esoccer := testRecord("222", "Esoccer Battle - 8 mins play", testStart, 1.85, 3.60, 4.20)
	placeholder := testRecord("333", "Unknown vs Chelsea", testStart, 1.85, 3.60, 4.20)

	results := s.Merge("betpawa", []models.RawEventRecord{srl, esoccer, placeholder})
	for _, r := range results {
		if r.Outcome != OutcomeExcluded {
			t.Errorf("record %q = %q, want %q", r.Record.ExternalID, r.Outcome, OutcomeExcluded)
		}
	}
	if stats := s.Stats(); stats.Pending != 0 {
		t.Errorf("excluded records must not be held, got %d pending", stats.Pending)
	}
}

func TestMerge_AmbiguousNameMatchPicksClosestStart(t *testing.T) {
	s := newTestStore(2)

	// Two fixtures with the same teams 40 minutes apart.
	for _, fixture := range []struct {
		id    string
		start time.Time
	}{
		{"111", testStart},
		{"222", testStart.Add(40 * time.Minute)},
	} {
		s.Merge("betpawa", []models.RawEventRecord{
			testRecord(fixture.id, "Arsenal vs Chelsea", fixture.start, 1.85, 3.60, 4.20),
		})
		s.Merge("sporty", []models.RawEventRecord{
			testRecord("sr:match:"+fixture.id, "Arsenal - Chelsea", fixture.start, 1.88, 3.55, 4.10),
		})
	}

	first := s.Merge("betika", []models.RawEventRecord{
		testRecord("", "Arsenal vs Chelsea", testStart.Add(10*time.Minute), 1.90, 3.50, 4.00),
	})
	if len(first) != 1 || first[0].Outcome != OutcomeUpdated {
		t.Fatalf("expected fuzzy update, got %+v", first)
	}
	picked := s.Event(first[0].EventID)
	if picked == nil || !picked.StartTime.Equal(testStart) {
		t.Errorf("should pick the fixture 10 minutes away, picked start %v", picked.StartTime)
	}
}

func TestMerge_NoNameMatchBeyondTolerance(t *testing.T) {
	s := newTestStore(2)

	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("111", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20),
	})
	s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:111", "Arsenal - Chelsea", testStart, 1.88, 3.55, 4.10),
	})

	results := s.Merge("betika", []models.RawEventRecord{
		testRecord("", "Arsenal vs Chelsea", testStart.Add(2*time.Hour), 1.90, 3.50, 4.00),
	})
	if len(results) != 1 || results[0].Outcome != OutcomePending {
		t.Fatalf("far-off start time must not fuzzy-match, got %+v", results)
	}
}

func TestMerge_MissingStartTimeStillMatchesByName(t *testing.T) {
	s := newTestStore(2)

	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("111", "Arsenal vs Chelsea", testStart, 1.85, 3.60, 4.20),
	})
	s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:111", "Arsenal - Chelsea", testStart, 1.88, 3.55, 4.10),
	})

	noTime := testRecord("", "Arsenal vs Chelsea", time.Time{}, 1.90, 3.50, 4.00)
	results := s.Merge("betika", []models.RawEventRecord{noTime})
	if len(results) != 1 || results[0].Outcome != OutcomeUpdated {
		t.Fatalf("record without start time should still match by name, got %+v", results)
	}
}

func TestCurrentEvents_DropsStartedLongAgo(t *testing.T) {
	s := newTestStore(2)

	// Merge while the match is still fresh, then read 8 hours after kickoff.
	old := testStart.Add(-8 * time.Hour)
	s.now = func() time.Time { return old.Add(time.Hour) }
	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("111", "Arsenal vs Chelsea", old, 1.85, 3.60, 4.20),
	})
	s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:111", "Arsenal - Chelsea", old, 1.88, 3.55, 4.10),
	})

	s.now = func() time.Time { return testStart }
	if events := s.CurrentEvents(); len(events) != 0 {
		t.Errorf("event started 8h ago must not be listed, got %d", len(events))
	}
	stats := s.Stats()
	if stats.Canonical != 1 || stats.Visible != 0 {
		t.Errorf("stale event stays canonical but not visible, stats = %+v", stats)
	}
}

func TestMerge_PrunesStalePending(t *testing.T) {
	s := newTestStore(2)

	old := testFetched.Add(-4 * time.Hour)
	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("111", "Arsenal vs Chelsea", old, 1.85, 3.60, 4.20),
	})
	if stats := s.Stats(); stats.Pending != 1 {
		t.Fatalf("expected 1 pending, got %d", stats.Pending)
	}

	// Any later merge sweeps out sightings whose start has long passed.
	s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:999", "Leeds - Everton", testStart, 2.10, 3.30, 3.60),
	})
	if stats := s.Stats(); stats.Pending != 1 {
		t.Errorf("stale pending should be dropped, got %d pending", stats.Pending)
	}
}

func TestWarmLoad_ResumesIDsAndMatching(t *testing.T) {
	s := newTestStore(2)

	s.WarmLoad([]models.CanonicalEvent{{
		ID:          7,
		ExternalIDs: map[string]string{"betpawa": "50850679", "sporty": "sr:match:50850679"},
		Sport:       "football",
		Country:     "England",
		Tournament:  "Premier League",
		Name:        "Arsenal vs Chelsea",
		HomeTeam:    "Arsenal",
		AwayTeam:    "Chelsea",
		StartTime:   testStart,
		Odds: map[string]models.BookmakerOdds{
			"betpawa": {Home: 1.85, Draw: 3.60, Away: 4.20, Timestamp: testFetched},
			"sporty":  {Home: 1.88, Draw: 3.55, Away: 4.10, Timestamp: testFetched},
		},
	}})

	// A restart must keep resolving known source ids to the same event.
	results := s.Merge("betika", []models.RawEventRecord{
		testRecord("50850679", "Arsenal vs Chelsea", testStart, 1.90, 3.50, 4.00),
	})
	if len(results) != 1 || results[0].Outcome != OutcomeUpdated || results[0].EventID != 7 {
		t.Fatalf("loaded event should absorb the record, got %+v", results)
	}

	// New promotions continue after the highest loaded id.
	s.Merge("betpawa", []models.RawEventRecord{
		testRecord("222", "Leeds vs Everton", testStart, 2.10, 3.30, 3.60),
	})
	promoted := s.Merge("sporty", []models.RawEventRecord{
		testRecord("sr:match:222", "Leeds - Everton", testStart, 2.05, 3.35, 3.70),
	})
	if promoted[0].EventID != 8 {
		t.Errorf("next event id = %d, want 8", promoted[0].EventID)
	}
}
