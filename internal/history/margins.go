package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
	"github.com/oddspulse/oddspulse/internal/pkg/storage"
)

const defaultMarginInterval = time.Hour

// Margin returns the bookmaker's theoretical overround for one 1X2 price
// set: 1/home + 1/draw + 1/away - 1.
func Margin(home, draw, away float64) float64 {
	return 1/home + 1/draw + 1/away - 1
}

// AggregateTournamentMargins groups observations by (country, tournament,
// bookmaker) and computes the arithmetic mean margin plus the number of
// contributing events. Observations missing a price are skipped. Output is
// sorted for stable writes.
func AggregateTournamentMargins(observations []models.MarginObservation, computedAt time.Time) []models.TournamentMargin {
	type groupKey struct {
		country    string
		tournament string
		bookmaker  string
	}
	type group struct {
		sum float64
		n   int
	}

	groups := make(map[groupKey]*group)
	for i := range observations {
		obs := &observations[i]
		if !obs.HasAllPrices() {
			continue
		}
		k := groupKey{obs.Country, obs.Tournament, obs.Bookmaker}
		g := groups[k]
		if g == nil {
			g = &group{}
			groups[k] = g
		}
		g.sum += Margin(obs.HomeOdds, obs.DrawOdds, obs.AwayOdds)
		g.n++
	}

	out := make([]models.TournamentMargin, 0, len(groups))
	for k, g := range groups {
		out = append(out, models.TournamentMargin{
			Country:       k.country,
			Tournament:    k.tournament,
			Bookmaker:     k.bookmaker,
			AverageMargin: g.sum / float64(g.n),
			EventCount:    g.n,
			ComputedAt:    computedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		if out[i].Tournament != out[j].Tournament {
			return out[i].Tournament < out[j].Tournament
		}
		return out[i].Bookmaker < out[j].Bookmaker
	})
	return out
}

// MarginJob periodically recomputes tournament margin aggregates from the
// latest stored observation per (event, bookmaker). Runs on its own cadence,
// independent of the merge cycle.
type MarginJob struct {
	storage  storage.MarginStorage
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewMarginJob(st storage.MarginStorage, cfg *config.HistoryConfig, log *slog.Logger) *MarginJob {
	interval := cfg.MarginInterval
	if interval <= 0 {
		interval = defaultMarginInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &MarginJob{
		storage:  st,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run recomputes on the configured cadence until the context is cancelled.
// The first recomputation happens one full interval after start; use RunOnce
// for an immediate pass.
func (j *MarginJob) Run(ctx context.Context) {
	j.log.Info("Starting tournament margin job", "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("Stopping tournament margin job")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.log.Error("Tournament margin recomputation failed", "error", err)
			}
		}
	}
}

// RunOnce replaces the whole margin table with a fresh aggregation. Safe to
// re-run at any time.
func (j *MarginJob) RunOnce(ctx context.Context) error {
	observations, err := j.storage.LatestMarginObservations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load margin observations: %w", err)
	}

	margins := AggregateTournamentMargins(observations, j.now())
	if err := j.storage.ReplaceTournamentMargins(ctx, margins); err != nil {
		return fmt.Errorf("failed to replace tournament margins: %w", err)
	}

	j.log.Info("Tournament margins recomputed",
		"groups", len(margins), "observations", len(observations))
	return nil
}
