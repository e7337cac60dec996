package betpawa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sampleEvent() Event {
	return Event{
		ID:        "42161856",
		Name:      "Arsenal FC - Chelsea FC",
		StartTime: "2026-04-24T17:00:00Z",
		Region:    named{Name: "England"},
		Competition: named{
			Name: "Premier League",
		},
		Widgets: []Widget{{Type: "SPORTRADAR", ID: "50850679"}},
		Markets: []Market{{
			MarketType: marketType{ID: marketTypeID, Name: "1X2 | Full Time"},
			Prices: []Price{
				{Name: "1", Price: 2.10},
				{Name: "X", Price: 3.40},
				{Name: "2", Price: 3.60},
			},
		}},
	}
}

func TestEventToRecord(t *testing.T) {
	fetchedAt := time.Date(2026, 4, 24, 12, 0, 0, 0, time.UTC)

	rec, ok := eventToRecord(sampleEvent(), fetchedAt)
	if !ok {
		t.Fatal("eventToRecord rejected a fully priced event")
	}
	if rec.ExternalID != "50850679" {
		t.Errorf("ExternalID = %q, want provider widget id %q", rec.ExternalID, "50850679")
	}
	if rec.Country != "England" || rec.Tournament != "Premier League" {
		t.Errorf("region = %q/%q, want England/Premier League", rec.Country, rec.Tournament)
	}
	if rec.HomeOdds != 2.10 || rec.DrawOdds != 3.40 || rec.AwayOdds != 3.60 {
		t.Errorf("odds = %v/%v/%v, want 2.1/3.4/3.6", rec.HomeOdds, rec.DrawOdds, rec.AwayOdds)
	}
	want := time.Date(2026, 4, 24, 17, 0, 0, 0, time.UTC)
	if !rec.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", rec.StartTime, want)
	}
	if !rec.FetchedAt.Equal(fetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", rec.FetchedAt, fetchedAt)
	}
}

func TestEventToRecord_FallsBackToEventID(t *testing.T) {
	ev := sampleEvent()
	ev.Widgets = nil

	rec, ok := eventToRecord(ev, time.Now())
	if !ok {
		t.Fatal("eventToRecord rejected event without widgets")
	}
	if rec.ExternalID != "42161856" {
		t.Errorf("ExternalID = %q, want betPawa event id %q", rec.ExternalID, "42161856")
	}
}

func TestEventToRecord_SkipsIncompletePrices(t *testing.T) {
	ev := sampleEvent()
	ev.Markets[0].Prices = ev.Markets[0].Prices[:2] // drop the away price

	if _, ok := eventToRecord(ev, time.Now()); ok {
		t.Error("eventToRecord accepted event missing the away price")
	}

	ev.Markets = nil
	if _, ok := eventToRecord(ev, time.Now()); ok {
		t.Error("eventToRecord accepted event without the 1X2 market")
	}
}

func TestAdapter_FetchSnapshot_Paginates(t *testing.T) {
	var pages int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if r.URL.Query().Get("q") == "" {
			t.Errorf("missing q parameter in %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		if pages == 1 {
			fmt.Fprint(w, `{"responses":[{"responses":[
				{"id":"1001","name":"Asante Kotoko - Hearts of Oak","startTime":"2026-04-24T17:00:00Z",
				 "region":{"name":"Ghana"},"competition":{"name":"Premier League"},
				 "widgets":[{"type":"SPORTRADAR","id":"51273471"}],
				 "markets":[{"marketType":{"id":"3743","name":"1X2"},
				             "prices":[{"name":"1","price":"1.85"},{"name":"X","price":3.4},{"name":"2","price":4.5}]}]}
			]}]}`)
			return
		}
		fmt.Fprint(w, `{"responses":[{"responses":[]}]}`)
	}))
	defer ts.Close()

	a := &Adapter{client: NewClient(ts.URL, "test", 5*time.Second), pageSize: 20, maxPages: 5}
	records, err := a.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if pages != 2 {
		t.Errorf("fetched %d pages, want 2 (one full, one empty)", pages)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ExternalID != "51273471" {
		t.Errorf("ExternalID = %q, want %q", records[0].ExternalID, "51273471")
	}
	if records[0].HomeOdds != 1.85 {
		t.Errorf("HomeOdds = %v, want 1.85 (string price on the wire)", records[0].HomeOdds)
	}
}

func TestAdapter_FetchSnapshot_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer ts.Close()

	a := &Adapter{client: NewClient(ts.URL, "test", 5*time.Second), pageSize: 20, maxPages: 5}
	if _, err := a.FetchSnapshot(context.Background()); err == nil {
		t.Error("FetchSnapshot succeeded against a 502 server, want error")
	}
}
