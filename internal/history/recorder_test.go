package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oddspulse/oddspulse/internal/correlator"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

type historySink struct {
	entries []models.OddsHistoryEntry
	calls   int
	err     error
}

func (s *historySink) AppendOddsHistory(_ context.Context, entries []models.OddsHistoryEntry) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *historySink) GetOddsHistory(context.Context, int64, int) ([]models.OddsHistoryEntry, error) {
	return nil, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_AppendsOnlyCreatedAndUpdated(t *testing.T) {
	sink := &historySink{}
	rec := NewRecorder(sink, quietLogger())

	fetched := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	record := models.RawEventRecord{HomeOdds: 1.85, DrawOdds: 3.60, AwayOdds: 4.20, FetchedAt: fetched}

	results := []correlator.MergeResult{
		{Bookmaker: "betpawa", EventID: 1, Outcome: correlator.OutcomeCreated, Record: record},
		{Bookmaker: "sporty", EventID: 1, Outcome: correlator.OutcomeUpdated, Record: record},
		{Bookmaker: "betika", EventID: 1, Outcome: correlator.OutcomeUnchanged, Record: record},
		{Bookmaker: "betika", Outcome: correlator.OutcomePending, Record: record},
		{Bookmaker: "betika", Outcome: correlator.OutcomeExcluded, Record: record},
	}
	if err := rec.Record(context.Background(), results); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	if len(sink.entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(sink.entries))
	}
	first := sink.entries[0]
	if first.EventID != 1 || first.Bookmaker != "betpawa" || first.HomeOdds != 1.85 {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if !first.RecordedAt.Equal(fetched) {
		t.Errorf("entry should carry the fetch time, got %v", first.RecordedAt)
	}
}

func TestRecorder_SkipsStorageWhenNothingChanged(t *testing.T) {
	sink := &historySink{}
	rec := NewRecorder(sink, quietLogger())

	err := rec.Record(context.Background(), []correlator.MergeResult{
		{Bookmaker: "betpawa", EventID: 1, Outcome: correlator.OutcomeUnchanged},
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if sink.calls != 0 {
		t.Errorf("storage must not be touched for unchanged results, got %d calls", sink.calls)
	}
}

func TestRecorder_WrapsStorageError(t *testing.T) {
	sink := &historySink{err: errors.New("connection reset")}
	rec := NewRecorder(sink, quietLogger())

	err := rec.Record(context.Background(), []correlator.MergeResult{
		{Bookmaker: "betpawa", EventID: 1, Outcome: correlator.OutcomeCreated},
	})
	if err == nil || !errors.Is(err, sink.err) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}
