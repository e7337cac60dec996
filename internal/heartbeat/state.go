package heartbeat

import "time"

// Sample is one availability observation in an event's history.
type Sample struct {
	At        time.Time `json:"at"`
	Available bool      `json:"available"`
}

// LiveEventState tracks one live event across polls. In-memory and
// process-lifetime: retained after the event stops appearing so its uptime
// series stays readable, until the retention window expires.
type LiveEventState struct {
	EventID                string    `json:"event_id"`
	Name                   string    `json:"name"`
	Country                string    `json:"country"`
	Tournament             string    `json:"tournament"`
	StartTime              time.Time `json:"start_time"`
	InPlay                 bool      `json:"in_play"`
	GameMinute             int       `json:"game_minute"`
	Period                 string    `json:"period,omitempty"`
	Available              bool      `json:"available"`
	ConsecutiveSuspensions int       `json:"consecutive_suspensions"`
	RecordCount            int       `json:"record_count"`
	Retired                bool      `json:"retired"`
	FirstSeenAt            time.Time `json:"first_seen_at"`
	LastSeenAt             time.Time `json:"last_seen_at"`
	Samples                []Sample  `json:"-"` // served by the history endpoint, not inlined
}

// Status reports the event's state name: available, suspended or retired.
func (s *LiveEventState) Status() string {
	switch {
	case s.Retired:
		return "retired"
	case s.Available:
		return "available"
	default:
		return "suspended"
	}
}

func (s *LiveEventState) clone() *LiveEventState {
	out := *s
	out.Samples = make([]Sample, len(s.Samples))
	copy(out.Samples, s.Samples)
	return &out
}

// UptimeStats is the availability summary for one live event.
type UptimeStats struct {
	EventID       string  `json:"event_id"`
	Available     int     `json:"available_samples"`
	Total         int     `json:"total_samples"`
	UptimePercent float64 `json:"uptime_percent"`
}

// TrackerSnapshot is the tracker's full state for the ops endpoints.
type TrackerSnapshot struct {
	Running   bool             `json:"running"`
	Source    string           `json:"source"`
	Tracked   int              `json:"tracked"`
	Active    int              `json:"active"`
	Available int              `json:"available"`
	Events    []LiveEventState `json:"events"`
}
