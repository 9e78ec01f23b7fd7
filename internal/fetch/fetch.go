// Package fetch finds and downloads patch announcement pages and isolates
// their content region.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound means no candidate URL served a usable page for the version.
var ErrNotFound = errors.New("patch page not found")

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retryable error (%s): %v", e.URL, e.Err)
	}
	return fmt.Sprintf("retryable error (%s): status %d", e.URL, e.StatusCode)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Config controls how pages are requested.
type Config struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	MinPageBytes  int
	MaxConcurrent int
	MaxPageBytes  int64
}

// Page is a downloaded patch announcement.
type Page struct {
	Version Version
	URL     string
	Body    []byte
}

// Client downloads patch pages from the publisher's site.
type Client struct {
	baseURL      string
	userAgent    string
	minPageBytes int
	maxPageBytes int64
	httpClient   *http.Client
	sem          chan struct{}

	Stats *LatencyStats
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = 10 << 20
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		userAgent:    cfg.UserAgent,
		minPageBytes: cfg.MinPageBytes,
		maxPageBytes: cfg.MaxPageBytes,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		sem:   make(chan struct{}, cfg.MaxConcurrent),
		Stats: NewLatencyStats(time.Hour),
	}
}

// FetchPage tries each candidate URL for the version in turn and returns the
// first one that serves a full page. When every candidate failed and at
// least one failure was transient, the returned error is a *RetryableError;
// otherwise it is ErrNotFound.
func (c *Client) FetchPage(ctx context.Context, v Version) (*Page, error) {
	var transient *RetryableError
	for _, u := range Candidates(c.baseURL, v) {
		body, status, err := c.get(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			transient = &RetryableError{URL: u, Err: err}
			continue
		}
		if status == http.StatusTooManyRequests || status >= 500 {
			transient = &RetryableError{URL: u, StatusCode: status}
			continue
		}
		if status == http.StatusOK && len(body) > c.minPageBytes {
			return &Page{Version: v, URL: u, Body: body}, nil
		}
	}
	if transient != nil {
		return nil, transient
	}
	return nil, fmt.Errorf("version %s: %w", v, ErrNotFound)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
	defer func() { <-c.sem }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.Stats.Record(time.Since(start), 0)
		return nil, 0, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxPageBytes))
	c.Stats.Record(time.Since(start), resp.StatusCode)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
