package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// StatusTable keeps the last run outcome per bookmaker in memory for the
// ops endpoints. The durable copy lives in storage.StatusStorage.
type StatusTable struct {
	mu       sync.RWMutex
	statuses map[string]models.ScraperRunStatus
}

func NewStatusTable() *StatusTable {
	return &StatusTable{statuses: make(map[string]models.ScraperRunStatus)}
}

// Load seeds the table from persisted rows, typically on startup.
func (t *StatusTable) Load(statuses []models.ScraperRunStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range statuses {
		if s.Bookmaker == "" {
			continue
		}
		t.statuses[s.Bookmaker] = s
	}
}

// RecordSuccess overwrites the bookmaker's row with a successful outcome
// and returns the stored value.
func (t *StatusTable) RecordSuccess(bookmaker string, eventCount int, fileSize int64, duration time.Duration, at time.Time) models.ScraperRunStatus {
	status := models.ScraperRunStatus{
		Bookmaker:  bookmaker,
		LastRunAt:  at,
		Success:    true,
		EventCount: eventCount,
		FileSize:   fileSize,
		Duration:   duration,
	}
	t.mu.Lock()
	t.statuses[bookmaker] = status
	t.mu.Unlock()
	return status
}

// RecordFailure overwrites the bookmaker's row with a failed outcome and
// returns the stored value.
func (t *StatusTable) RecordFailure(bookmaker string, fetchErr error, duration time.Duration, at time.Time) models.ScraperRunStatus {
	status := models.ScraperRunStatus{
		Bookmaker: bookmaker,
		LastRunAt: at,
		Success:   false,
		Duration:  duration,
	}
	if fetchErr != nil {
		status.LastError = fetchErr.Error()
	}
	t.mu.Lock()
	t.statuses[bookmaker] = status
	t.mu.Unlock()
	return status
}

// Snapshot returns all rows sorted by bookmaker code.
func (t *StatusTable) Snapshot() []models.ScraperRunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ScraperRunStatus, 0, len(t.statuses))
	for _, s := range t.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bookmaker < out[j].Bookmaker })
	return out
}
