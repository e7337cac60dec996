package models

import (
	"time"
)

// ScraperRunStatus is the last run outcome for one bookmaker adapter.
// One row per adapter, overwritten each cycle.
type ScraperRunStatus struct {
	Bookmaker  string        `json:"bookmaker"`
	LastRunAt  time.Time     `json:"last_run_at"`
	Success    bool          `json:"success"`
	LastError  string        `json:"last_error,omitempty"`
	EventCount int           `json:"event_count"`
	FileSize   int64         `json:"file_size"` // archived snapshot size, 0 when archiving is off
	Duration   time.Duration `json:"duration"`
}
