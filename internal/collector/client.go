package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	maxDisplay   = 100
	maxStart     = 1000
	maxErrorBody = 512

	retryBaseDelay = 2 * time.Second
	retryMaxDelay  = 10 * time.Second
)

// SearchItem is one raw item of the search API response. Numeric fields
// arrive as strings and are parsed during normalization.
type SearchItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Image       string `json:"image"`
	LPrice      string `json:"lprice"`
	HPrice      string `json:"hprice"`
	MallName    string `json:"mallName"`
	ProductID   string `json:"productId"`
	ProductType string `json:"productType"`
	Brand       string `json:"brand"`
	Maker       string `json:"maker"`
	Category1   string `json:"category1"`
	Category2   string `json:"category2"`
	Category3   string `json:"category3"`
	Category4   string `json:"category4"`
}

// SearchResponse is the search API page envelope.
type SearchResponse struct {
	Total   int          `json:"total"`
	Start   int          `json:"start"`
	Display int          `json:"display"`
	Items   []SearchItem `json:"items"`
}

// ClientConfig carries the client credentials and paging limits.
type ClientConfig struct {
	ClientID      string
	ClientSecret  string
	ApiUrl        string
	PageSize      int
	MaxPerKeyword int
	Timeout       time.Duration
	RetryAttempts int
}

// Client is the Naver Shopping search API client. It owns the retry
// policy for transient faults; permanent refusals surface immediately.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.PageSize <= 0 || cfg.PageSize > maxDisplay {
		cfg.PageSize = maxDisplay
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Search fetches a single result page. Transient failures are retried
// with exponential backoff up to the configured attempt count.
func (c *Client) Search(ctx context.Context, query string, display, start int) (*SearchResponse, error) {
	if query == "" {
		return nil, errors.New("search keyword is required")
	}
	if display < 1 || display > maxDisplay {
		display = maxDisplay
	}
	if start < 1 {
		start = 1
	}
	if start > maxStart {
		start = maxStart
	}

	var lastErr error
	delay := retryBaseDelay
	for attempt := 0; attempt < c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}

		resp, err := c.searchOnce(ctx, query, display, start)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		zap.S().Named("collector").Warnw("search attempt failed, retrying",
			"query", query, "attempt", attempt+1, "error", err)
	}

	return nil, lastErr
}

func (c *Client) searchOnce(ctx context.Context, query string, display, start int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(display))
	params.Set("start", strconv.Itoa(start))
	params.Set("sort", "sim")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", c.cfg.ApiUrl, params.Encode()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Naver-Client-Id", c.cfg.ClientID)
	req.Header.Set("X-Naver-Client-Secret", c.cfg.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		// the deadline belongs to the caller, report it as-is
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, errors.Wrap(err, "failed to decode search response")
	}

	return &searchResp, nil
}

// SearchAll pages through results for the keyword up to the configured
// per-keyword maximum. A mid-pagination failure returns the items
// already collected together with the error.
func (c *Client) SearchAll(ctx context.Context, query string) ([]SearchItem, error) {
	var items []SearchItem

	maxResults := c.cfg.MaxPerKeyword
	if maxResults <= 0 {
		maxResults = maxDisplay
	}

	for start := 1; start <= maxResults && start <= maxStart; start += c.cfg.PageSize {
		display := c.cfg.PageSize
		if remaining := maxResults - start + 1; remaining < display {
			display = remaining
		}

		resp, err := c.Search(ctx, query, display, start)
		if err != nil {
			if len(items) > 0 {
				zap.S().Named("collector").Warnw("pagination aborted, returning partial results",
					"query", query, "collected", len(items), "error", err)
				return items, nil
			}
			return nil, err
		}

		if len(resp.Items) == 0 {
			break
		}
		items = append(items, resp.Items...)

		// short page means the result set is exhausted
		if len(resp.Items) < display {
			break
		}
	}

	return items, nil
}

func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.retryable()
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	return false
}
