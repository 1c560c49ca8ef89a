package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout = 8 * time.Second

	// How far back the first poll looks.
	initialLookback = 2 * time.Minute
)

// Client queries the marketplace events and asset endpoints for one tracked
// contract. It owns the polling watermark: the lower time bound of the next
// events query, advanced only after a fully successful fetch-and-parse.
type Client struct {
	baseURL   string
	contract  string
	apiKey    string
	pageLimit int
	http      *http.Client
	log       *slog.Logger

	watermark time.Time
	nowFunc   func() time.Time
}

// NewClient builds a marketplace client. The contract address is normalized to
// lowercase as the query side expects.
func NewClient(baseURL, contract, apiKey string, pageLimit int, log *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		contract:  strings.ToLower(contract),
		apiKey:    apiKey,
		pageLimit: pageLimit,
		http:      &http.Client{Timeout: defaultTimeout},
		log:       log,
		watermark: time.Now().Add(-initialLookback),
		nowFunc:   time.Now,
	}
}

// Watermark returns the lower time bound for the next events query.
func (c *Client) Watermark() time.Time {
	return c.watermark
}

// FetchRecentSales queries completed sale events since the watermark, grouped
// into logical sale transactions. It never returns an error: transport
// failures, non-2xx responses, and rate limits all degrade to an empty slice
// with a status the caller can act on. The watermark advances only on FetchOK.
func (c *Client) FetchRecentSales(ctx context.Context) ([]SaleEvent, FetchStatus) {
	q := url.Values{}
	q.Set("asset_contract_address", c.contract)
	q.Set("event_type", "successful")
	q.Set("only_opensea", "false")
	q.Set("occurred_after", strconv.FormatInt(c.watermark.Unix(), 10))
	q.Set("limit", strconv.Itoa(c.pageLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		c.log.Error("build events request", "error", err)
		return nil, FetchFailed
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("fetch sales", "error", err)
		return nil, FetchFailed
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.log.Warn("rate limited by marketplace API; consider adding an API key")
		return nil, FetchRateLimited
	case resp.StatusCode != http.StatusOK:
		c.log.Error("marketplace API error", "status", resp.StatusCode)
		return nil, FetchFailed
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Error("decode events response", "error", err)
		return nil, FetchFailed
	}

	now := c.nowFunc()
	sales := aggregateSales(body.AssetEvents, now)
	c.watermark = now
	return sales, FetchOK
}

// FetchAssetImage looks up the media URL for one token. Candidate metadata
// fields are tried in order; an empty string with nil error means the asset
// simply has no image.
func (c *Client) FetchAssetImage(ctx context.Context, tokenID string) (string, error) {
	u := fmt.Sprintf("%s/asset/%s/%s", c.baseURL, c.contract, url.PathEscape(tokenID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build asset request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch asset %s: %w", tokenID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("rate limited fetching asset %s", tokenID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("asset %s: status %d", tokenID, resp.StatusCode)
	}

	var body assetResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode asset %s: %w", tokenID, err)
	}

	for _, candidate := range []string{
		body.ImageURL,
		body.ImageOriginalURL,
		body.ImagePreviewURL,
		body.Collection.ImageURL,
	} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", nil
}

// Ping checks marketplace API reachability for health checks and validate.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("asset_contract_address", c.contract)
	q.Set("event_type", "successful")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping marketplace: %w", err)
	}
	defer resp.Body.Close()

	// 429 still proves the API is reachable.
	if resp.StatusCode >= 500 {
		return fmt.Errorf("marketplace status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
}
