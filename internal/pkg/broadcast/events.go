// Package broadcast carries engine lifecycle events from the scheduler to
// in-process subscribers and out to Redis pub/sub and Kafka.
package broadcast

import "time"

// Kind identifies an engine lifecycle event.
type Kind string

const (
	SourceStarted        Kind = "source_started"
	SourceCompleted      Kind = "source_completed"
	SourceFailed         Kind = "source_failed"
	AllSourcesCompleted  Kind = "all_sources_completed"
	CorrelationCompleted Kind = "correlation_completed"
)

// Event is one scheduler lifecycle notification. Bookmaker and EventCount
// are set on per-source kinds, Stats only on CorrelationCompleted.
type Event struct {
	Kind       Kind        `json:"kind"`
	CycleID    string      `json:"cycle_id"`
	Bookmaker  string      `json:"bookmaker,omitempty"`
	EventCount int         `json:"event_count,omitempty"`
	Error      string      `json:"error,omitempty"`
	Stats      *CycleStats `json:"stats,omitempty"`
	At         time.Time   `json:"at"`
}

// CycleStats summarizes one full pull-and-merge cycle.
type CycleStats struct {
	Sources   int           `json:"sources"`
	Failed    int           `json:"failed"`
	Records   int           `json:"records"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Pending   int           `json:"pending"`
	Excluded  int           `json:"excluded"`
	Canonical int           `json:"canonical"`
	Visible   int           `json:"visible"`
	Duration  time.Duration `json:"duration"`
}
