package correlator

import (
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// MergeOutcome classifies what one raw record did to the store.
type MergeOutcome string

const (
	// OutcomeCreated: the record participated in promoting a new canonical
	// event. Promotion yields one Created result per contributing bookmaker.
	OutcomeCreated MergeOutcome = "created"
	// OutcomeUpdated: the record replaced its bookmaker's entry on an
	// existing canonical event.
	OutcomeUpdated MergeOutcome = "updated"
	// OutcomeUnchanged: the entry already held identical odds with the same
	// timestamp. Replays produce no writes and no history.
	OutcomeUnchanged MergeOutcome = "unchanged"
	// OutcomePending: single-source sighting held until another bookmaker
	// corroborates it.
	OutcomePending MergeOutcome = "pending"
	// OutcomeExcluded: synthetic competition or placeholder names, dropped
	// before matching.
	OutcomeExcluded MergeOutcome = "excluded"
)

// MergeResult reports the outcome for one record. EventID is zero for
// pending and excluded records.
type MergeResult struct {
	Bookmaker string
	EventID   int64
	Outcome   MergeOutcome
	Record    models.RawEventRecord
}

// Merge applies one bookmaker's snapshot to the store. Matching per record:
// exact external id for this bookmaker, then the digits-normalized id across
// all bookmakers, then fuzzy team names within the start-time tolerance.
// Safe for concurrent use; the whole batch runs under one lock.
func (s *Store) Merge(bookmaker string, records []models.RawEventRecord) []MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneStalePending(now)

	results := make([]MergeResult, 0, len(records))
	for i := range records {
		rec := records[i]
		if isExcluded(rec.Tournament, rec.Name, rec.HomeTeam, rec.AwayTeam, s.excluded) {
			results = append(results, MergeResult{Bookmaker: bookmaker, Outcome: OutcomeExcluded, Record: rec})
			continue
		}
		results = append(results, s.mergeOne(bookmaker, rec, now)...)
	}
	return results
}

func (s *Store) mergeOne(bookmaker string, rec models.RawEventRecord, now time.Time) []MergeResult {
	normID := normalizeExternalID(rec.ExternalID)
	key := nameKey(rec.Sport, rec.HomeTeam, rec.AwayTeam, rec.Name)

	if id, ok := s.findCanonical(bookmaker, normID, key, rec.StartTime); ok {
		outcome := s.applyToEvent(s.events[id], bookmaker, rec, now)
		return []MergeResult{{Bookmaker: bookmaker, EventID: id, Outcome: outcome, Record: rec}}
	}

	if p, pid, ok := s.findPending(bookmaker, normID, key, rec.StartTime); ok {
		if p.bookmaker == bookmaker {
			// Same source re-reporting an uncorroborated event: refresh the
			// held record, keep waiting.
			p.record = rec
			p.normID = normID
			p.key = key
			return []MergeResult{{Bookmaker: bookmaker, Outcome: OutcomePending, Record: rec}}
		}
		delete(s.pending, pid)
		ev := s.promote(p, bookmaker, rec, now)
		return []MergeResult{
			{Bookmaker: p.bookmaker, EventID: ev.ID, Outcome: OutcomeCreated, Record: p.record},
			{Bookmaker: bookmaker, EventID: ev.ID, Outcome: OutcomeCreated, Record: rec},
		}
	}

	pid := s.nextPD
	s.nextPD++
	s.pending[pid] = &pendingEvent{bookmaker: bookmaker, record: rec, normID: normID, key: key}
	return []MergeResult{{Bookmaker: bookmaker, Outcome: OutcomePending, Record: rec}}
}

// findCanonical resolves a record to an existing canonical event. Caller
// holds the lock.
func (s *Store) findCanonical(bookmaker, normID, key string, start time.Time) (int64, bool) {
	if normID != "" {
		if id, ok := s.byExternal[bookmaker+"|"+normID]; ok {
			return id, true
		}
		if hasDigits(normID) {
			if id, ok := s.byNormID[normID]; ok {
				return id, true
			}
		}
	}
	if key == "" {
		return 0, false
	}

	var bestID int64
	bestDelta := time.Duration(-1)
	matches := 0
	for _, id := range s.byNameKey[key] {
		ev, ok := s.events[id]
		if !ok {
			continue
		}
		delta, within := startDelta(ev.StartTime, start, s.timeTolerance)
		if !within {
			continue
		}
		matches++
		if bestDelta < 0 || delta < bestDelta || (delta == bestDelta && id < bestID) {
			bestID, bestDelta = id, delta
		}
	}
	if matches == 0 {
		return 0, false
	}
	if matches > 1 {
		s.log.Warn("Ambiguous name match, picking closest start time",
			"key", key, "candidates", matches, "picked", bestID)
	}
	return bestID, true
}

// findPending looks for a held sighting this record corroborates or
// refreshes. Caller holds the lock.
func (s *Store) findPending(bookmaker, normID, key string, start time.Time) (*pendingEvent, int64, bool) {
	if normID != "" {
		for pid, p := range s.pending {
			if p.normID != normID {
				continue
			}
			// Same bookmaker re-reporting, or a numeric id shared across
			// bookmakers. Non-numeric ids never match across sources.
			if p.bookmaker == bookmaker || hasDigits(normID) {
				return p, pid, true
			}
		}
	}
	if key == "" {
		return nil, 0, false
	}

	var best *pendingEvent
	var bestPID int64
	bestDelta := time.Duration(-1)
	matches := 0
	for pid, p := range s.pending {
		if p.key != key {
			continue
		}
		delta, within := startDelta(p.record.StartTime, start, s.timeTolerance)
		if !within {
			continue
		}
		matches++
		if best == nil || delta < bestDelta || (delta == bestDelta && pid < bestPID) {
			best, bestPID, bestDelta = p, pid, delta
		}
	}
	if best == nil {
		return nil, 0, false
	}
	if matches > 1 {
		s.log.Warn("Ambiguous pending match, picking closest start time",
			"key", key, "candidates", matches)
	}
	return best, bestPID, true
}

// startDelta ranks a candidate by how close its start time is to the
// record's. A missing time on either side is acceptable but ranked at the
// tolerance edge, so candidates with a confirmed close time win.
func startDelta(candidate, record time.Time, tolerance time.Duration) (time.Duration, bool) {
	if candidate.IsZero() || record.IsZero() {
		return tolerance, true
	}
	delta := candidate.Sub(record)
	if delta < 0 {
		delta = -delta
	}
	if delta > tolerance {
		return 0, false
	}
	return delta, true
}

// applyToEvent replaces this bookmaker's entry on the event, leaving all
// other bookmakers' entries untouched.
func (s *Store) applyToEvent(ev *models.CanonicalEvent, bookmaker string, rec models.RawEventRecord, now time.Time) MergeOutcome {
	next := models.BookmakerOdds{
		Home:      rec.HomeOdds,
		Draw:      rec.DrawOdds,
		Away:      rec.AwayOdds,
		Timestamp: rec.FetchedAt,
	}
	if prev, ok := ev.Odds[bookmaker]; ok && sameOdds(prev, next) {
		return OutcomeUnchanged
	}

	ev.Odds[bookmaker] = next
	if rec.ExternalID != "" && ev.ExternalIDs[bookmaker] != rec.ExternalID {
		ev.ExternalIDs[bookmaker] = rec.ExternalID
		s.indexEntry(ev, bookmaker, rec.ExternalID)
	}
	fillMissing(ev, rec)
	if key := nameKey(ev.Sport, ev.HomeTeam, ev.AwayTeam, ev.Name); key != "" {
		s.byNameKey[key] = appendID(s.byNameKey[key], ev.ID)
	}
	ev.UpdatedAt = now
	return OutcomeUpdated
}

func sameOdds(a, b models.BookmakerOdds) bool {
	return a.Home == b.Home && a.Draw == b.Draw && a.Away == b.Away && a.Timestamp.Equal(b.Timestamp)
}

// promote turns a corroborated pending sighting into a canonical event. The
// first-sighted record's metadata wins; the new record fills the gaps.
func (s *Store) promote(p *pendingEvent, bookmaker string, rec models.RawEventRecord, now time.Time) *models.CanonicalEvent {
	held := p.record
	ev := &models.CanonicalEvent{
		ID:          s.nextID,
		ExternalIDs: make(map[string]string, 2),
		Sport:       held.Sport,
		Country:     held.Country,
		Tournament:  held.Tournament,
		Name:        held.Name,
		HomeTeam:    held.HomeTeam,
		AwayTeam:    held.AwayTeam,
		StartTime:   held.StartTime,
		Odds:        make(map[string]models.BookmakerOdds, 2),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextID++

	fillMissing(ev, rec)
	if ev.HomeTeam == "" || ev.AwayTeam == "" {
		if h, a, ok := splitTeamsFromName(ev.Name); ok {
			ev.HomeTeam, ev.AwayTeam = h, a
		}
	}
	if held.ExternalID != "" {
		ev.ExternalIDs[p.bookmaker] = held.ExternalID
	}
	if rec.ExternalID != "" {
		ev.ExternalIDs[bookmaker] = rec.ExternalID
	}
	ev.Odds[p.bookmaker] = models.BookmakerOdds{
		Home:      held.HomeOdds,
		Draw:      held.DrawOdds,
		Away:      held.AwayOdds,
		Timestamp: held.FetchedAt,
	}
	ev.Odds[bookmaker] = models.BookmakerOdds{
		Home:      rec.HomeOdds,
		Draw:      rec.DrawOdds,
		Away:      rec.AwayOdds,
		Timestamp: rec.FetchedAt,
	}

	s.events[ev.ID] = ev
	s.indexEvent(ev)
	s.log.Debug("Promoted canonical event",
		"id", ev.ID, "name", ev.Name, "sources", []string{p.bookmaker, bookmaker})
	return ev
}

// fillMissing copies record attributes into empty or placeholder event
// fields. Established metadata is never overwritten.
func fillMissing(ev *models.CanonicalEvent, rec models.RawEventRecord) {
	fillField(&ev.Sport, rec.Sport)
	fillField(&ev.Country, rec.Country)
	fillField(&ev.Tournament, rec.Tournament)
	fillField(&ev.Name, rec.Name)
	fillField(&ev.HomeTeam, rec.HomeTeam)
	fillField(&ev.AwayTeam, rec.AwayTeam)
	if ev.StartTime.IsZero() && !rec.StartTime.IsZero() {
		ev.StartTime = rec.StartTime
	}
}

func fillField(dst *string, src string) {
	if isPlaceholderField(*dst) && !isPlaceholderField(src) {
		*dst = src
	}
}

func isPlaceholderField(v string) bool {
	return v == "" || v == "Unknown" || v == "Unknown Tournament"
}
