package models

import (
	"time"
)

// RawEventRecord is one fixture as reported by a single bookmaker source.
// Adapters resolve all source quirks (id schemes, date formats, string odds)
// into this shape before anything downstream sees the data.
// JSON tags follow the scraper wire format so script adapters and snapshot
// archives share one encoding.
type RawEventRecord struct {
	ExternalID string    `json:"eventId"`
	Sport      string    `json:"sport"`
	Country    string    `json:"country"`
	Tournament string    `json:"tournament"`
	Name       string    `json:"event"`
	HomeTeam   string    `json:"home_team,omitempty"`
	AwayTeam   string    `json:"away_team,omitempty"`
	StartTime  time.Time `json:"start_time"`
	HomeOdds   float64   `json:"home_odds"`
	DrawOdds   float64   `json:"draw_odds"`
	AwayOdds   float64   `json:"away_odds"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// HasAllPrices reports whether all three outcomes carry a usable price.
func (r *RawEventRecord) HasAllPrices() bool {
	return r.HomeOdds > 1.0 && r.DrawOdds > 1.0 && r.AwayOdds > 1.0
}

// BookmakerOdds is one bookmaker's current 1X2 price set on a canonical event.
type BookmakerOdds struct {
	Home      float64   `json:"home"`
	Draw      float64   `json:"draw"`
	Away      float64   `json:"away"`
	Timestamp time.Time `json:"timestamp"`
}

// CanonicalEvent is the merged representation of one real-world fixture
// across all bookmaker sources. Created on the first corroborated sighting,
// merged in place on every later cycle, never hard-deleted.
type CanonicalEvent struct {
	ID          int64                    `json:"id"`
	ExternalIDs map[string]string        `json:"external_ids"` // bookmaker code -> source id as reported
	Sport       string                   `json:"sport"`
	Country     string                   `json:"country"`
	Tournament  string                   `json:"tournament"`
	Name        string                   `json:"name"`
	HomeTeam    string                   `json:"home_team"`
	AwayTeam    string                   `json:"away_team"`
	StartTime   time.Time                `json:"start_time"`
	Odds        map[string]BookmakerOdds `json:"odds"` // bookmaker code -> current prices
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Clone returns a deep copy so readers never share maps with the store.
func (e *CanonicalEvent) Clone() *CanonicalEvent {
	if e == nil {
		return nil
	}
	out := *e
	out.ExternalIDs = make(map[string]string, len(e.ExternalIDs))
	for k, v := range e.ExternalIDs {
		out.ExternalIDs[k] = v
	}
	out.Odds = make(map[string]BookmakerOdds, len(e.Odds))
	for k, v := range e.Odds {
		out.Odds[k] = v
	}
	return &out
}
