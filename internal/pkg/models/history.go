package models

import (
	"time"
)

// OddsHistoryEntry is one immutable time-series observation of a bookmaker's
// prices on a canonical event. Append-only: the audit trail and chart source.
type OddsHistoryEntry struct {
	EventID    int64     `json:"event_id"`
	Bookmaker  string    `json:"bookmaker"`
	HomeOdds   float64   `json:"home_odds"`
	DrawOdds   float64   `json:"draw_odds"`
	AwayOdds   float64   `json:"away_odds"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HasAllPrices reports whether the entry can contribute to margin math.
// Entries missing a price are kept as raw history but excluded from margins.
func (e *OddsHistoryEntry) HasAllPrices() bool {
	return e.HomeOdds > 1.0 && e.DrawOdds > 1.0 && e.AwayOdds > 1.0
}

// MarginObservation is the latest recorded price set for one (event, bookmaker)
// pair together with the event's grouping attributes. Input to the tournament
// margin aggregation.
type MarginObservation struct {
	EventID    int64
	Country    string
	Tournament string
	Bookmaker  string
	HomeOdds   float64
	DrawOdds   float64
	AwayOdds   float64
}

// HasAllPrices reports whether the observation can contribute to margin math.
func (o *MarginObservation) HasAllPrices() bool {
	return o.HomeOdds > 1.0 && o.DrawOdds > 1.0 && o.AwayOdds > 1.0
}

// TournamentMargin is the derived mean bookmaker margin for one
// (country, tournament, bookmaker) group, rewritten on each recomputation.
type TournamentMargin struct {
	Country       string    `json:"country"`
	Tournament    string    `json:"tournament"`
	Bookmaker     string    `json:"bookmaker"`
	AverageMargin float64   `json:"average_margin"`
	EventCount    int       `json:"event_count"`
	ComputedAt    time.Time `json:"computed_at"`
}
