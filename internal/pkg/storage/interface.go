package storage

import (
	"context"

	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// EventStorage persists canonical events. Events are upserted on every merge
// cycle and loaded back on startup to seed the in-memory store.
type EventStorage interface {
	// UpsertEvent stores a canonical event, replacing any existing row.
	UpsertEvent(ctx context.Context, event *models.CanonicalEvent) error

	// GetEvents retrieves all stored canonical events.
	GetEvents(ctx context.Context) ([]models.CanonicalEvent, error)

	// GetEvent retrieves one event by id. Returns (nil, nil) when not stored.
	GetEvent(ctx context.Context, id int64) (*models.CanonicalEvent, error)

	// Close closes the database connection
	Close() error
}

// OddsHistoryStorage keeps the append-only odds timeline per event and
// bookmaker.
type OddsHistoryStorage interface {
	// AppendOddsHistory inserts new history entries. Re-inserting an entry
	// for the same (event, bookmaker, recorded_at) is a no-op.
	AppendOddsHistory(ctx context.Context, entries []models.OddsHistoryEntry) error

	// GetOddsHistory returns recent entries for an event (oldest first), at
	// most limit.
	GetOddsHistory(ctx context.Context, eventID int64, limit int) ([]models.OddsHistoryEntry, error)
}

// MarginStorage serves the tournament margin batch job.
type MarginStorage interface {
	// LatestMarginObservations returns the current odds of every stored
	// event, one observation per bookmaker entry. Entries missing a price
	// are included; the aggregation decides what to exclude.
	LatestMarginObservations(ctx context.Context) ([]models.MarginObservation, error)

	// ReplaceTournamentMargins atomically swaps the margin table for a fresh
	// batch.
	ReplaceTournamentMargins(ctx context.Context, margins []models.TournamentMargin) error

	// GetTournamentMargins retrieves the last computed batch.
	GetTournamentMargins(ctx context.Context) ([]models.TournamentMargin, error)
}

// StatusStorage records the outcome of each scraper run per bookmaker.
type StatusStorage interface {
	// SaveRunStatus upserts the bookmaker's latest run outcome.
	SaveRunStatus(ctx context.Context, status models.ScraperRunStatus) error

	// GetRunStatuses retrieves the latest outcome for every bookmaker.
	GetRunStatuses(ctx context.Context) ([]models.ScraperRunStatus, error)
}
