package sporty

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sampleTournament() Tournament {
	return Tournament{
		ID:   "sr:tournament:17",
		Name: "Premier League",
		Events: []Event{{
			EventID:           "sr:match:50850679",
			HomeTeamName:      "Arsenal",
			AwayTeamName:      "Chelsea",
			EstimateStartTime: 1745494800000,
			Sport:             sportInfo{Category: named{Name: "England"}},
			Markets: []Market{{
				ID:   "1",
				Name: "1X2",
				Outcomes: []Outcome{
					{Desc: "Home", Odds: 2.10},
					{Desc: "Draw", Odds: 3.40},
					{Desc: "Away", Odds: 3.60},
				},
			}},
		}},
	}
}

func TestEventToRecord(t *testing.T) {
	tr := sampleTournament()
	fetchedAt := time.Date(2026, 4, 24, 12, 0, 0, 0, time.UTC)

	rec, ok := eventToRecord(tr, tr.Events[0], fetchedAt)
	if !ok {
		t.Fatal("eventToRecord rejected a fully priced event")
	}
	if rec.ExternalID != "sr:match:50850679" {
		t.Errorf("ExternalID = %q, want the provider id kept verbatim", rec.ExternalID)
	}
	if rec.Name != "Arsenal - Chelsea" {
		t.Errorf("Name = %q, want %q", rec.Name, "Arsenal - Chelsea")
	}
	if rec.Country != "England" || rec.Tournament != "Premier League" {
		t.Errorf("region = %q/%q, want England/Premier League", rec.Country, rec.Tournament)
	}
	want := time.UnixMilli(1745494800000).UTC()
	if !rec.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", rec.StartTime, want)
	}
	if rec.HomeOdds != 2.10 || rec.DrawOdds != 3.40 || rec.AwayOdds != 3.60 {
		t.Errorf("odds = %v/%v/%v, want 2.1/3.4/3.6", rec.HomeOdds, rec.DrawOdds, rec.AwayOdds)
	}
}

func TestEventToRecord_PlaceholdersAndRejects(t *testing.T) {
	tr := sampleTournament()

	noCategory := tr.Events[0]
	noCategory.Sport = sportInfo{}
	rec, ok := eventToRecord(Tournament{}, noCategory, time.Now())
	if !ok {
		t.Fatal("eventToRecord rejected event without category")
	}
	if rec.Country != "Unknown" || rec.Tournament != "Unknown Tournament" {
		t.Errorf("placeholders = %q/%q, want Unknown/Unknown Tournament", rec.Country, rec.Tournament)
	}

	noID := tr.Events[0]
	noID.EventID = ""
	if _, ok := eventToRecord(tr, noID, time.Now()); ok {
		t.Error("eventToRecord accepted event without id")
	}

	zeroOdds := tr.Events[0]
	zeroOdds.Markets = []Market{{ID: "1", Name: "1X2"}}
	if _, ok := eventToRecord(tr, zeroOdds, time.Now()); ok {
		t.Error("eventToRecord accepted event with empty 1X2 outcomes")
	}
}

func TestGameMinute(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"47:12", 47},
		{"90:00", 90},
		{"0:30", 0},
		{"", 0},
		{"HT", 0},
	}
	for _, tt := range tests {
		if got := gameMinute(tt.in); got != tt.want {
			t.Errorf("gameMinute(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPriced1x2(t *testing.T) {
	full := sampleTournament().Events[0]

	suspended := sampleTournament().Events[0]
	suspended.Markets[0].SuspendedReason = "EVENT_SUSPENDED"

	partial := sampleTournament().Events[0]
	partial.Markets[0].Outcomes = partial.Markets[0].Outcomes[:2]

	noMarket := sampleTournament().Events[0]
	noMarket.Markets = nil

	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{"open market with full prices", full, true},
		{"suspended market", suspended, false},
		{"missing away outcome", partial, false},
		{"no 1X2 market", noMarket, false},
	}
	for _, tt := range tests {
		if got := priced1x2(tt.ev); got != tt.want {
			t.Errorf("priced1x2(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLiveClient_FetchLive(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"bizCode":10000,"message":"0.0","data":[
			{"id":"sr:tournament:17","name":"Premier League","events":[
				{"eventId":"sr:match:51273471","homeTeamName":"Leeds","awayTeamName":"Everton",
				 "estimateStartTime":1745494800000,"status":1,"playedSeconds":"47:12","period":"2nd half",
				 "sport":{"category":{"name":"England"}},
				 "markets":[{"id":"1","name":"1X2","suspendedReason":"MATCH_CLOCK_STOPPED",
				             "outcomes":[{"desc":"Home","odds":"2.05"},{"desc":"Draw","odds":"3.10"},{"desc":"Away","odds":"4.20"}]}]}
			]}
		]}`)
	}))
	defer ts.Close()

	l := &LiveClient{client: NewClient(ts.URL, "test", 5*time.Second)}
	records, err := l.FetchLive(context.Background())
	if err != nil {
		t.Fatalf("FetchLive: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.ExternalID != "sr:match:51273471" {
		t.Errorf("ExternalID = %q, want %q", rec.ExternalID, "sr:match:51273471")
	}
	if !rec.InPlay {
		t.Error("InPlay = false for a status-1 event")
	}
	if rec.GameMinute != 47 {
		t.Errorf("GameMinute = %d, want 47", rec.GameMinute)
	}
	if rec.Priced {
		t.Error("Priced = true for a suspended 1X2 market")
	}
}

func TestLiveClient_FetchLive_BizCodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bizCode":4100,"message":"service unavailable","data":[]}`)
	}))
	defer ts.Close()

	l := &LiveClient{client: NewClient(ts.URL, "test", 5*time.Second)}
	if _, err := l.FetchLive(context.Background()); err == nil {
		t.Error("FetchLive accepted a non-10000 bizCode, want error")
	}
}
