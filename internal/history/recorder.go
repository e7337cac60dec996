// Package history turns merge results into the append-only odds timeline
// and derives per-tournament margin statistics from stored observations.
package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oddspulse/oddspulse/internal/correlator"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
	"github.com/oddspulse/oddspulse/internal/pkg/storage"
)

// Recorder appends odds observations produced by merge cycles. A Recorder
// with nil storage drops entries, which keeps database-less runs working.
type Recorder struct {
	storage storage.OddsHistoryStorage
	log     *slog.Logger
}

func NewRecorder(st storage.OddsHistoryStorage, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{storage: st, log: log}
}

// Record appends one history entry per created or updated merge result.
// Unchanged, pending and excluded records leave no trace, so a replayed
// snapshot adds nothing to the timeline.
func (r *Recorder) Record(ctx context.Context, results []correlator.MergeResult) error {
	entries := make([]models.OddsHistoryEntry, 0, len(results))
	for _, res := range results {
		switch res.Outcome {
		case correlator.OutcomeCreated, correlator.OutcomeUpdated:
		default:
			continue
		}
		entries = append(entries, models.OddsHistoryEntry{
			EventID:    res.EventID,
			Bookmaker:  res.Bookmaker,
			HomeOdds:   res.Record.HomeOdds,
			DrawOdds:   res.Record.DrawOdds,
			AwayOdds:   res.Record.AwayOdds,
			RecordedAt: res.Record.FetchedAt,
		})
	}
	if len(entries) == 0 || r.storage == nil {
		return nil
	}

	if err := r.storage.AppendOddsHistory(ctx, entries); err != nil {
		return fmt.Errorf("failed to append odds history: %w", err)
	}
	r.log.Debug("Recorded odds history", "entries", len(entries))
	return nil
}
