package sporty

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// eventStatusLive marks an in-play event on the factsCenter feed.
const eventStatusLive = 1

// LiveClient polls the in-play feed for the heartbeat tracker. It reports
// what the feed returned this instant; interpreting gaps and suspensions is
// the tracker's job.
type LiveClient struct {
	client *Client
}

func NewLiveClient(cfg *config.Config) *LiveClient {
	c := &cfg.Adapters.Sporty
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = cfg.Adapters.Timeout
	}
	return &LiveClient{
		client: NewClient(c.BaseURL, cfg.Adapters.UserAgent, timeout),
	}
}

func (l *LiveClient) Code() string {
	return bookmakerName
}

func (l *LiveClient) FetchLive(ctx context.Context) ([]models.LiveRecord, error) {
	tournaments, err := l.client.ListLive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live events: %w", err)
	}

	var records []models.LiveRecord
	for _, t := range tournaments {
		for _, ev := range t.Events {
			if ev.EventID == "" {
				continue
			}
			records = append(records, liveRecord(t, ev))
		}
	}
	return records, nil
}

func liveRecord(t Tournament, ev Event) models.LiveRecord {
	country := ev.Sport.Category.Name
	if country == "" {
		country = "Unknown"
	}
	var start time.Time
	if ev.EstimateStartTime != 0 {
		start = time.UnixMilli(int64(ev.EstimateStartTime)).UTC()
	}
	return models.LiveRecord{
		ExternalID: ev.EventID,
		Name:       fmt.Sprintf("%s - %s", ev.HomeTeamName, ev.AwayTeamName),
		Country:    country,
		Tournament: t.Name,
		StartTime:  start,
		InPlay:     ev.Status == eventStatusLive,
		GameMinute: gameMinute(ev.PlayedSeconds),
		Period:     ev.Period,
		Priced:     priced1x2(ev),
	}
}

// gameMinute extracts the minute from the feed's "47:12" match clock.
func gameMinute(playedSeconds string) int {
	minutes, _, ok := strings.Cut(playedSeconds, ":")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(minutes))
	if err != nil {
		return 0
	}
	return n
}

// priced1x2 reports whether the event's 1X2 market is open and fully priced.
// A suspendedReason on the market means the book has pulled the prices even
// when odds values are still present in the payload.
func priced1x2(ev Event) bool {
	market := findMarket(ev, oneXTwoMarketID)
	if market == nil {
		return false
	}
	if market.SuspendedReason != "" {
		return false
	}
	var home, draw, away float64
	for _, o := range market.Outcomes {
		switch strings.ToLower(o.Desc) {
		case "home":
			home = float64(o.Odds)
		case "draw":
			draw = float64(o.Odds)
		case "away":
			away = float64(o.Odds)
		}
	}
	return home > 1.0 && draw > 1.0 && away > 1.0
}
