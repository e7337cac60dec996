package betpawa

import (
	"context"
	"log/slog"
	"time"

	"github.com/oddspulse/oddspulse/internal/adapters"
	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

const bookmakerName = "betpawa"

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
	c := &cfg.Adapters.Betpawa
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = cfg.Adapters.Timeout
	}
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = 50
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

	for page := 0; page < a.maxPages; page++ {
		events, err := a.client.ListUpcoming(ctx, page*a.pageSize, a.pageSize)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			break
		}
		for _, ev := range events {
			rec, ok := eventToRecord(ev, fetchedAt)
			if !ok {
				skipped++
				continue
			}
			records = append(records, rec)
		}
	}

	if skipped > 0 {
		slog.Debug("betPawa: skipped events without a full 1X2 price set", "skipped", skipped)
	}
	return records, nil
}

func eventToRecord(ev Event, fetchedAt time.Time) (models.RawEventRecord, bool) {
	market := findMarket(ev.Markets, marketTypeID)
	if market == nil {
		return models.RawEventRecord{}, false
	}
	var home, draw, away float64
	for _, p := range market.Prices {
		switch p.Name {
		case "1":
			home = float64(p.Price)
		case "X":
			draw = float64(p.Price)
		case "2":
			away = float64(p.Price)
		}
	}

	startTime, err := adapters.ParseStartTime(ev.StartTime)
	if err != nil {
		return models.RawEventRecord{}, false
	}

	rec := models.RawEventRecord{
		ExternalID: externalID(ev),
		Sport:      "football",
		Country:    ev.Region.Name,
		Tournament: ev.Competition.Name,
		Name:       ev.Name,
		StartTime:  startTime,
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

// externalID prefers the SPORTRADAR widget id: it is the provider match id
// shared with other books on the same feed, which is what makes cross-source
// correlation by id possible. Falls back to betPawa's own event id.
func externalID(ev Event) string {
	for _, w := range ev.Widgets {
		if w.Type == "SPORTRADAR" && w.ID != "" {
			return string(w.ID)
		}
	}
	return string(ev.ID)
}

func findMarket(markets []Market, typeID string) *Market {
	for i := range markets {
		if markets[i].MarketType.ID == typeID {
			return &markets[i]
		}
	}
	return nil
}
