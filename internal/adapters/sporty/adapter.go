package sporty

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oddspulse/oddspulse/internal/adapters"
	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

const bookmakerName = "sporty"

// oneXTwoMarketID identifies the 1X2 market in both factsCenter feeds.
const oneXTwoMarketID = "1"

func init() {
	adapters.Register(bookmakerName, func(cfg *config.Config) adapters.Adapter {
		return NewAdapter(cfg)
	})
}

type Adapter struct {
	client   *Client
	pageSize int
	maxPages int
}

func NewAdapter(cfg *config.Config) *Adapter {
	c := &cfg.Adapters.Sporty
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = cfg.Adapters.Timeout
	}
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}
	return &Adapter{
		client:   NewClient(c.BaseURL, cfg.Adapters.UserAgent, timeout),
		pageSize: pageSize,
		maxPages: maxPages,
	}
}

func (a *Adapter) Code() string {
	return bookmakerName
}

func (a *Adapter) FetchSnapshot(ctx context.Context) ([]models.RawEventRecord, error) {
	records, err := a.fetch(ctx)
	if err != nil {
		return nil, &adapters.FetchError{Bookmaker: bookmakerName, Err: err}
	}
	return records, nil
}

func (a *Adapter) fetch(ctx context.Context) ([]models.RawEventRecord, error) {
	fetchedAt := time.Now().UTC()
	var records []models.RawEventRecord
	var skipped int

	for page := 1; page <= a.maxPages; page++ {
		tournaments, err := a.client.ListUpcoming(ctx, a.pageSize, page)
		if err != nil {
			return nil, err
		}
		var pageEvents int
		for _, t := range tournaments {
			pageEvents += len(t.Events)
			for _, ev := range t.Events {
				rec, ok := eventToRecord(t, ev, fetchedAt)
				if !ok {
					skipped++
					continue
				}
				records = append(records, rec)
			}
		}
		if pageEvents == 0 {
			break
		}
	}

	if skipped > 0 {
		slog.Debug("sporty: skipped events without a full 1X2 price set", "skipped", skipped)
	}
	return records, nil
}

func eventToRecord(t Tournament, ev Event, fetchedAt time.Time) (models.RawEventRecord, bool) {
	if ev.EventID == "" || ev.HomeTeamName == "" || ev.AwayTeamName == "" {
		return models.RawEventRecord{}, false
	}
	home, draw, away := oneXTwoOdds(ev)

	country := ev.Sport.Category.Name
	if country == "" {
		country = "Unknown"
	}
	tournament := t.Name
	if tournament == "" {
		tournament = "Unknown Tournament"
	}

	rec := models.RawEventRecord{
		ExternalID: ev.EventID,
		Sport:      "football",
		Country:    country,
		Tournament: tournament,
		Name:       fmt.Sprintf("%s - %s", ev.HomeTeamName, ev.AwayTeamName),
		HomeTeam:   ev.HomeTeamName,
		AwayTeam:   ev.AwayTeamName,
		StartTime:  startTime(ev),
		HomeOdds:   home,
		DrawOdds:   draw,
		AwayOdds:   away,
		FetchedAt:  fetchedAt,
	}
	if !rec.HasAllPrices() {
		return models.RawEventRecord{}, false
	}
	return rec, true
}

func startTime(ev Event) time.Time {
	if ev.EstimateStartTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ev.EstimateStartTime)).UTC()
}

func oneXTwoOdds(ev Event) (home, draw, away float64) {
	market := findMarket(ev, oneXTwoMarketID)
	if market == nil {
		return 0, 0, 0
	}
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
	return home, draw, away
}

func findMarket(ev Event, id string) *Market {
	for i := range ev.Markets {
		if ev.Markets[i].ID == id {
			return &ev.Markets[i]
		}
	}
	return nil
}
