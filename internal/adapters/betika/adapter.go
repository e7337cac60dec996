package betika

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddspulse/oddspulse/internal/adapters"
	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

const bookmakerName = "betika"

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
	c := &cfg.Adapters.Betika
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = cfg.Adapters.Timeout
	}
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = 50
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

	// Pages are 1-based on this API.
	for page := 1; page <= a.maxPages; page++ {
		matches, err := a.client.ListMatches(ctx, page, a.pageSize)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			break
		}
		for _, m := range matches {
			rec, ok := matchToRecord(m, fetchedAt)
			if !ok {
				skipped++
				continue
			}
			records = append(records, rec)
		}
	}

	if skipped > 0 {
		slog.Debug("betika: skipped matches without a full 1X2 price set", "skipped", skipped)
	}
	return records, nil
}

func matchToRecord(m Match, fetchedAt time.Time) (models.RawEventRecord, bool) {
	if m.Home.Name == "" || m.Away.Name == "" || len(m.Markets) == 0 {
		return models.RawEventRecord{}, false
	}
	var home, draw, away float64
	for _, sel := range m.Markets[0].Selections {
		switch sel.Name {
		case "1":
			home = float64(sel.Odd)
		case "X":
			draw = float64(sel.Odd)
		case "2":
			away = float64(sel.Odd)
		}
	}

	rec := models.RawEventRecord{
		ExternalID: string(m.ID),
		Sport:      "football",
		Country:    m.Competition.Category.Name,
		Tournament: m.Competition.Name,
		Name:       fmt.Sprintf("%s vs %s", m.Home.Name, m.Away.Name),
		HomeTeam:   m.Home.Name,
		AwayTeam:   m.Away.Name,
		StartTime:  time.Unix(m.Time, 0).UTC(),
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
