package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// Ensure PostgresStorage implements every storage contract
var _ EventStorage = (*PostgresStorage)(nil)
var _ OddsHistoryStorage = (*PostgresStorage)(nil)
var _ MarginStorage = (*PostgresStorage)(nil)
var _ StatusStorage = (*PostgresStorage)(nil)

// PostgresStorage backs all engine persistence with a single PostgreSQL
// database: canonical events, odds history, tournament margins and scraper
// run statuses.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage opens the connection, verifies it and creates the
// schema if missing.
func NewPostgresStorage(cfg *config.PostgresConfig) (*PostgresStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL storage initialized successfully")
	return s, nil
}

func (s *PostgresStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		id BIGINT PRIMARY KEY,
		external_ids JSONB NOT NULL DEFAULT '{}',
		sport VARCHAR(100) NOT NULL,
		country VARCHAR(200) NOT NULL DEFAULT '',
		tournament VARCHAR(500) NOT NULL DEFAULT '',
		name VARCHAR(500) NOT NULL,
		home_team VARCHAR(500) NOT NULL DEFAULT '',
		away_team VARCHAR(500) NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		odds JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);
	CREATE INDEX IF NOT EXISTS idx_events_updated_at ON events(updated_at DESC);

	CREATE TABLE IF NOT EXISTS odds_history (
		event_id BIGINT NOT NULL,
		bookmaker VARCHAR(100) NOT NULL,
		home_odds DECIMAL(10, 4) NOT NULL,
		draw_odds DECIMAL(10, 4) NOT NULL,
		away_odds DECIMAL(10, 4) NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (event_id, bookmaker, recorded_at)
	);

	CREATE INDEX IF NOT EXISTS idx_odds_history_event ON odds_history(event_id, recorded_at DESC);

	CREATE TABLE IF NOT EXISTS tournament_margins (
		country VARCHAR(200) NOT NULL,
		tournament VARCHAR(500) NOT NULL,
		bookmaker VARCHAR(100) NOT NULL,
		average_margin DECIMAL(10, 6) NOT NULL,
		event_count INTEGER NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (country, tournament, bookmaker)
	);

	CREATE TABLE IF NOT EXISTS scraper_status (
		bookmaker VARCHAR(100) PRIMARY KEY,
		last_run_at TIMESTAMPTZ NOT NULL,
		success BOOLEAN NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		event_count INTEGER NOT NULL DEFAULT 0,
		file_size BIGINT NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// UpsertEvent stores a canonical event, replacing any existing row.
func (s *PostgresStorage) UpsertEvent(ctx context.Context, event *models.CanonicalEvent) error {
	externalIDs, err := json.Marshal(event.ExternalIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal external ids: %w", err)
	}
	odds, err := json.Marshal(event.Odds)
	if err != nil {
		return fmt.Errorf("failed to marshal odds: %w", err)
	}

	query := `
	INSERT INTO events (
		id, external_ids, sport, country, tournament, name,
		home_team, away_team, start_time, odds, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		external_ids = EXCLUDED.external_ids,
		country = EXCLUDED.country,
		tournament = EXCLUDED.tournament,
		name = EXCLUDED.name,
		home_team = EXCLUDED.home_team,
		away_team = EXCLUDED.away_team,
		start_time = EXCLUDED.start_time,
		odds = EXCLUDED.odds,
		updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		event.ID, externalIDs, event.Sport, event.Country, event.Tournament, event.Name,
		event.HomeTeam, event.AwayTeam, event.StartTime, odds, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert event %d: %w", event.ID, err)
	}
	return nil
}

// GetEvents retrieves all stored canonical events.
func (s *PostgresStorage) GetEvents(ctx context.Context) ([]models.CanonicalEvent, error) {
	query := `
	SELECT id, external_ids, sport, country, tournament, name,
	       home_team, away_team, start_time, odds, created_at, updated_at
	FROM events
	ORDER BY start_time
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.CanonicalEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return events, nil
}

// GetEvent retrieves one event by id. Returns (nil, nil) when not stored.
func (s *PostgresStorage) GetEvent(ctx context.Context, id int64) (*models.CanonicalEvent, error) {
	query := `
	SELECT id, external_ids, sport, country, tournament, name,
	       home_team, away_team, start_time, odds, created_at, updated_at
	FROM events
	WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, id)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.CanonicalEvent, error) {
	var event models.CanonicalEvent
	var externalIDs, odds []byte
	err := row.Scan(
		&event.ID, &externalIDs, &event.Sport, &event.Country, &event.Tournament, &event.Name,
		&event.HomeTeam, &event.AwayTeam, &event.StartTime, &odds, &event.CreatedAt, &event.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	if err := json.Unmarshal(externalIDs, &event.ExternalIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal external ids for event %d: %w", event.ID, err)
	}
	if err := json.Unmarshal(odds, &event.Odds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal odds for event %d: %w", event.ID, err)
	}
	return &event, nil
}

// AppendOddsHistory inserts new history entries in one transaction.
// Re-inserting an entry for the same (event, bookmaker, recorded_at) is a
// no-op, which keeps replayed cycles from duplicating the timeline.
func (s *PostgresStorage) AppendOddsHistory(ctx context.Context, entries []models.OddsHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO odds_history (event_id, bookmaker, home_odds, draw_odds, away_odds, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (event_id, bookmaker, recorded_at) DO NOTHING
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.EventID, e.Bookmaker, e.HomeOdds, e.DrawOdds, e.AwayOdds, e.RecordedAt); err != nil {
			return fmt.Errorf("failed to append history for event %d: %w", e.EventID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// GetOddsHistory returns recent entries for an event (oldest first), at most
// limit.
func (s *PostgresStorage) GetOddsHistory(ctx context.Context, eventID int64, limit int) ([]models.OddsHistoryEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
	SELECT event_id, bookmaker, home_odds, draw_odds, away_odds, recorded_at
	FROM odds_history
	WHERE event_id = $1
	ORDER BY recorded_at DESC
	LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query odds history: %w", err)
	}
	defer rows.Close()

	var entries []models.OddsHistoryEntry
	for rows.Next() {
		var e models.OddsHistoryEntry
		if err := rows.Scan(&e.EventID, &e.Bookmaker, &e.HomeOdds, &e.DrawOdds, &e.AwayOdds, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Query returns newest first; callers want the timeline oldest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// LatestMarginObservations explodes the current odds of every stored event
// into one observation per bookmaker entry.
func (s *PostgresStorage) LatestMarginObservations(ctx context.Context) ([]models.MarginObservation, error) {
	query := `SELECT id, country, tournament, odds FROM events`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query margin observations: %w", err)
	}
	defer rows.Close()

	var observations []models.MarginObservation
	for rows.Next() {
		var id int64
		var country, tournament string
		var oddsRaw []byte
		if err := rows.Scan(&id, &country, &tournament, &oddsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan margin observation: %w", err)
		}
		var odds map[string]models.BookmakerOdds
		if err := json.Unmarshal(oddsRaw, &odds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal odds for event %d: %w", id, err)
		}
		for bookmaker, o := range odds {
			observations = append(observations, models.MarginObservation{
				EventID:    id,
				Country:    country,
				Tournament: tournament,
				Bookmaker:  bookmaker,
				HomeOdds:   o.Home,
				DrawOdds:   o.Draw,
				AwayOdds:   o.Away,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return observations, nil
}

// ReplaceTournamentMargins atomically swaps the margin table for a fresh
// batch.
func (s *PostgresStorage) ReplaceTournamentMargins(ctx context.Context, margins []models.TournamentMargin) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tournament_margins`); err != nil {
		return fmt.Errorf("failed to clear tournament margins: %w", err)
	}

	query := `
	INSERT INTO tournament_margins (country, tournament, bookmaker, average_margin, event_count, computed_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare margin insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range margins {
		if _, err := stmt.ExecContext(ctx, m.Country, m.Tournament, m.Bookmaker, m.AverageMargin, m.EventCount, m.ComputedAt); err != nil {
			return fmt.Errorf("failed to insert margin for %s/%s: %w", m.Tournament, m.Bookmaker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit margins: %w", err)
	}
	return nil
}

// GetTournamentMargins retrieves the last computed batch.
func (s *PostgresStorage) GetTournamentMargins(ctx context.Context) ([]models.TournamentMargin, error) {
	query := `
	SELECT country, tournament, bookmaker, average_margin, event_count, computed_at
	FROM tournament_margins
	ORDER BY country, tournament, bookmaker
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournament margins: %w", err)
	}
	defer rows.Close()

	var margins []models.TournamentMargin
	for rows.Next() {
		var m models.TournamentMargin
		if err := rows.Scan(&m.Country, &m.Tournament, &m.Bookmaker, &m.AverageMargin, &m.EventCount, &m.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tournament margin: %w", err)
		}
		margins = append(margins, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return margins, nil
}

// SaveRunStatus upserts the bookmaker's latest run outcome.
func (s *PostgresStorage) SaveRunStatus(ctx context.Context, status models.ScraperRunStatus) error {
	query := `
	INSERT INTO scraper_status (bookmaker, last_run_at, success, last_error, event_count, file_size, duration_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (bookmaker) DO UPDATE SET
		last_run_at = EXCLUDED.last_run_at,
		success = EXCLUDED.success,
		last_error = EXCLUDED.last_error,
		event_count = EXCLUDED.event_count,
		file_size = EXCLUDED.file_size,
		duration_ms = EXCLUDED.duration_ms
	`
	_, err := s.db.ExecContext(ctx, query,
		status.Bookmaker, status.LastRunAt, status.Success, status.LastError,
		status.EventCount, status.FileSize, status.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run status for %s: %w", status.Bookmaker, err)
	}
	return nil
}

// GetRunStatuses retrieves the latest outcome for every bookmaker.
func (s *PostgresStorage) GetRunStatuses(ctx context.Context) ([]models.ScraperRunStatus, error) {
	query := `
	SELECT bookmaker, last_run_at, success, last_error, event_count, file_size, duration_ms
	FROM scraper_status
	ORDER BY bookmaker
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query run statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.ScraperRunStatus
	for rows.Next() {
		var st models.ScraperRunStatus
		var durationMs int64
		if err := rows.Scan(&st.Bookmaker, &st.LastRunAt, &st.Success, &st.LastError, &st.EventCount, &st.FileSize, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run status: %w", err)
		}
		st.Duration = time.Duration(durationMs) * time.Millisecond
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return statuses, nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
