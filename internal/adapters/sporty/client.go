package sporty

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.sportybet.com"
const sportFootball = "sr:sport:1"

// upcomingMarkets is the market-id list the site itself requests; "1" is the
// 1X2 market, the rest keep the response shape identical to the web client.
const upcomingMarkets = "1,18,10,29,11,26,36,14,60100"

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

// ListUpcoming returns one page of upcoming football tournaments.
// GET /api/gh/factsCenter/pcUpcomingEvents?sportId=...&marketId=...&pageSize=...&pageNum=...
func (c *Client) ListUpcoming(ctx context.Context, pageSize, pageNum int) ([]Tournament, error) {
	u := fmt.Sprintf("%s/api/gh/factsCenter/pcUpcomingEvents?sportId=%s&marketId=%s&pageSize=%d&pageNum=%d&_t=%d",
		c.baseURL, url.QueryEscape(sportFootball), url.QueryEscape(upcomingMarkets),
		pageSize, pageNum, time.Now().UnixMilli())
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	var out upcomingResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upcoming events: %w", err)
	}
	if err := checkBizCode(out.BizCode, out.Message); err != nil {
		return nil, err
	}
	return out.Data.Tournaments, nil
}

// ListLive returns the currently running football tournaments with in-play
// state and market suspension flags.
// GET /api/gh/factsCenter/liveOrPrematchEvents?sportId=...&productId=1
func (c *Client) ListLive(ctx context.Context) ([]Tournament, error) {
	u := fmt.Sprintf("%s/api/gh/factsCenter/liveOrPrematchEvents?sportId=%s&productId=1&_t=%d",
		c.baseURL, url.QueryEscape(sportFootball), time.Now().UnixMilli())
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	var out liveResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode live events: %w", err)
	}
	if err := checkBizCode(out.BizCode, out.Message); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// checkBizCode validates the feed's application-level status. 10000 is the
// success code; zero means the field was absent.
func checkBizCode(code int, message string) error {
	if code != 0 && code != 10000 {
		return fmt.Errorf("bizCode %d: %s", code, message)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
