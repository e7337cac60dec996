package models

import (
	"time"
)

// LiveRecord is one event as reported by the live-odds source on a single
// poll: identity, match clock, and whether the main market currently carries
// active pricing.
type LiveRecord struct {
	ExternalID string    `json:"eventId"`
	Name       string    `json:"event"`
	Country    string    `json:"country"`
	Tournament string    `json:"tournament"`
	StartTime  time.Time `json:"start_time"`
	InPlay     bool      `json:"in_play"`
	GameMinute int       `json:"game_minute"`
	Period     string    `json:"period,omitempty"`
	Priced     bool      `json:"priced"`
}
