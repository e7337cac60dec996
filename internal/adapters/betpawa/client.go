package betpawa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.betpawa.com.gh"

// marketTypeID is the full-time 1X2 market in the betPawa sportsbook API.
const marketTypeID = "3743"

// footballCategory in the betPawa event taxonomy.
const footballCategory = 2

type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// ListUpcoming returns one page of upcoming football events with the 1X2
// market attached.
// GET /api/sportsbook/v2/events/lists/by-queries?q=<url-encoded query JSON>
func (c *Client) ListUpcoming(ctx context.Context, skip, take int) ([]Event, error) {
	query := fmt.Sprintf(
		`{"queries":[{"query":{"eventType":"UPCOMING","categories":[%d],"zones":{},"hasOdds":true},"view":{"marketTypes":["%s"]},"skip":%d,"take":%d}]}`,
		footballCategory, marketTypeID, skip, take)
	u := c.baseURL + "/api/sportsbook/v2/events/lists/by-queries?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Pawa-Language", "en")
	req.Header.Set("Devicetype", "web")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if len(out.Responses) == 0 {
		return nil, nil
	}
	return out.Responses[0].Responses, nil
}
