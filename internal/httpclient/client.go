// Package httpclient wraps go-retryablehttp for JSON REST upstreams.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"token-intel/internal/domain"
	"token-intel/internal/observability"
)

// Default settings.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultRetryMax     = 2
	DefaultRetryWaitMin = 500 * time.Millisecond
	DefaultRetryWaitMax = 5 * time.Second
	maxBodyBytes        = 16 << 20
)

// Client issues JSON requests against one upstream service.
type Client struct {
	service string
	http    *retryablehttp.Client
	limiter *rate.Limiter
	headers http.Header
}

// Option configures Client.
type Option func(*Client)

// WithRetryMax sets the retry count for transport errors and 5xx/429 responses.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithRetryWait sets the retry backoff bounds.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = min
		c.http.RetryWaitMax = max
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = d
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// New creates a client labelled service in logs and metrics.
func New(service string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = DefaultRetryMax
	rc.RetryWaitMin = DefaultRetryWaitMin
	rc.RetryWaitMax = DefaultRetryWaitMax
	rc.HTTPClient.Timeout = DefaultTimeout
	rc.Logger = nil

	c := &Client{
		service: service,
		http:    rc,
		headers: make(http.Header),
	}
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Unwrap classifies the status: 404 is domain.ErrNotFound, anything else domain.ErrUpstream.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return domain.ErrUpstream
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, out)
}

// PostJSON marshals body, POSTs it, and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) error {
	return c.DoJSON(ctx, http.MethodPost, url, body, out)
}

// DoJSON performs a request with an optional JSON body.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var payload interface{}
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.RecordUpstream(c.service, 0, time.Since(started).Seconds())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s request: %v", domain.ErrUpstream, c.service, err)
	}
	defer resp.Body.Close()
	observability.RecordUpstream(c.service, resp.StatusCode, time.Since(started).Seconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %s read body: %v", domain.ErrUpstream, c.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Service: c.service, StatusCode: resp.StatusCode, Body: truncate(string(raw), 256)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s decode response: %v", domain.ErrFormat, c.service, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
