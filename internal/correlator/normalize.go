// Package correlator merges per-bookmaker event snapshots into canonical
// events. Matching runs external-id first, then fuzzy team-name matching
// with a start-time tolerance.
package correlator

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizeExternalID reduces a source event id to its digits so provider
// prefixed ids ("sr:match:50850679") and bare numeric ids ("50850679")
// resolve to the same event. Ids without any digits are kept lowercased.
func normalizeExternalID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return strings.ToLower(id)
	}
	return b.String()
}

// hasDigits reports whether the normalized id is numeric and therefore safe
// to match across bookmakers. Non-numeric ids stay bookmaker-local.
func hasDigits(normID string) bool {
	for _, r := range normID {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// teamNamePrefixes are stripped for grouping so "RC Hades" and "Hades" match
// the same team.
var teamNamePrefixes = []string{
	"r.c. ", "rc ", "k.s.k. ", "k.s. k. ", "ksk ", "f.c. ", "fc ", "f.k. ", "fk ",
	"c.f. ", "cf ", "s.c. ", "sc ", "s.s.c. ", "ssc ", "a.c. ", "ac ", "a.s. ", "as ",
	"u.d. ", "ud ", "c.d. ", "cd ", "n.k. ", "nk ", "b.c. ", "bc ", "bk ",
}

// foldDiacritics strips combining marks so "São Paulo" and "Sao Paulo"
// compare equal across bookmakers.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeTeam normalizes a team name for comparison and grouping.
// Strips common club prefixes (RC, K.S.K., FC, etc.) so "RC Hades" and
// "Hades" get the same key.
func normalizeTeam(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(foldDiacritics, s); err == nil {
		s = folded
	}
	// Strip known prefixes (order: try longer first)
	for _, p := range teamNamePrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	// collapse whitespace
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// splitTeamsFromName extracts team names from an event name string.
// Supports separators: " vs ", " - ", " — ", " – "
func splitTeamsFromName(name string) (string, string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	separators := []string{" vs ", " - ", " — ", " – "}
	for _, sep := range separators {
		parts := strings.Split(name, sep)
		if len(parts) != 2 {
			continue
		}
		home := strings.TrimSpace(parts[0])
		away := strings.TrimSpace(parts[1])
		if home == "" || away == "" {
			return "", "", false
		}
		return home, away, true
	}
	return "", "", false
}

// nameKey builds the fuzzy-match grouping key. Empty when the teams cannot
// be resolved; such events match by external id only.
// Format: "sport|home|away"
func nameKey(sport, homeTeam, awayTeam, eventName string) string {
	home := normalizeTeam(homeTeam)
	away := normalizeTeam(awayTeam)
	if home == "" || away == "" {
		if h, a, ok := splitTeamsFromName(eventName); ok {
			home = normalizeTeam(h)
			away = normalizeTeam(a)
		}
	}
	if home == "" || away == "" {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(sport))
	if s == "" {
		s = "unknown"
	}
	return s + "|" + home + "|" + away
}

// placeholderTeam is the name bookmakers emit when a participant is not yet
// known. Such records cannot be matched by name and are dropped before
// merging.
const placeholderTeam = "unknown"

// isExcluded reports whether the record must be dropped before matching:
// synthetic competitions (simulated reality, esoccer) identified by marker
// substrings on the tournament or event name, and placeholder team names.
func isExcluded(tournament, eventName, homeTeam, awayTeam string, markers []string) bool {
	t := strings.ToLower(tournament)
	n := strings.ToLower(eventName)
	for _, marker := range markers {
		m := strings.ToLower(marker)
		if m == "" {
			continue
		}
		if strings.Contains(t, m) || strings.Contains(n, m) {
			return true
		}
	}

	home := normalizeTeam(homeTeam)
	away := normalizeTeam(awayTeam)
	if home == "" || away == "" {
		if h, a, ok := splitTeamsFromName(eventName); ok {
			home = normalizeTeam(h)
			away = normalizeTeam(a)
		}
	}
	if home == placeholderTeam || away == placeholderTeam {
		return true
	}
	return strings.TrimSpace(n) == placeholderTeam
}
