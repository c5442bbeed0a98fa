// Package httpx implements the retrying HTTP client used by every
// network-facing component of the pipeline.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/d1freeez14/neuro-tender/internal/retry"
)

// DefaultRetryStatuses mirrors the portal's observed transient failures.
var DefaultRetryStatuses = []int{http.StatusTooManyRequests, 500, 502, 503, 504}

// Config controls retry and politeness behavior.
type Config struct {
	Attempts          int
	RetryDelay        time.Duration
	RateLimitCooldown time.Duration
	Timeout           time.Duration
	RequestsPerSecond float64
	RetryStatuses     []int
	UserAgent         string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Response is a buffered HTTP result.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client wraps outbound calls with bounded retry and a per-host politeness
// limiter. A 429 response triggers a fixed cooldown and does not consume the
// attempt budget reserved for other failures.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	errors atomic.Int64
}

// New builds a Client; zero config fields fall back to safe defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Attempts < 1 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.RetryStatuses) == 0 {
		cfg.RetryStatuses = DefaultRetryStatuses
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		logger:   logger,
		limiters: map[string]*rate.Limiter{},
	}
}

// Errors reports how many calls exhausted their attempt budget.
func (c *Client) Errors() int64 {
	return c.errors.Load()
}

// Retryable reports whether the status code is part of the transient set.
func (c *Client) Retryable(status int) bool {
	for _, s := range c.cfg.RetryStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Get fetches the URL and buffers the body.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL)
}

// Head issues a metadata-only probe and returns the response headers.
func (c *Client) Head(ctx context.Context, rawURL string) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return nil, err
	}
	return resp.Header, nil
}

// Download streams the URL body into dst, retrying failed connection
// attempts; a stream broken mid-copy is not resumed.
func (c *Client) Download(ctx context.Context, rawURL string, dst io.Writer) (int64, error) {
	var written int64
	err := c.withRetries(ctx, rawURL, func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return false, fmt.Errorf("build request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return true, fmt.Errorf("request %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return c.Retryable(resp.StatusCode), statusError(rawURL, resp.StatusCode)
		}

		written, err = io.Copy(dst, resp.Body)
		if err != nil {
			return false, fmt.Errorf("stream %s: %w", rawURL, err)
		}
		return false, nil
	})
	return written, err
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*Response, error) {
	var result *Response
	err := c.withRetries(ctx, rawURL, func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return false, fmt.Errorf("build request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return true, fmt.Errorf("request %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return c.Retryable(resp.StatusCode), statusError(rawURL, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, fmt.Errorf("read body %s: %w", rawURL, err)
		}
		result = &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withRetries runs one attempt at a time; op reports whether its failure is
// retryable. A 429 outcome sleeps the fixed cooldown and loops again without
// touching the attempt counter.
func (c *Client) withRetries(ctx context.Context, rawURL string, op func() (bool, error)) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; {
		// Each attempt holds to the per-host rate, retries included.
		if err := c.wait(ctx, rawURL); err != nil {
			return err
		}
		retryable, err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if status, ok := errorStatus(err); ok && status == http.StatusTooManyRequests {
			c.logger.Warn("rate limited, backing off", "url", rawURL, "cooldown", c.cfg.RateLimitCooldown)
			if sleepErr := retry.Sleep(ctx, c.cfg.RateLimitCooldown); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		if !retryable {
			c.errors.Add(1)
			return err
		}

		c.logger.Debug("request failed", "url", rawURL, "attempt", attempt, "error", err)
		attempt++
		if attempt > c.cfg.Attempts {
			break
		}
		if sleepErr := retry.Sleep(ctx, c.cfg.RetryDelay); sleepErr != nil {
			return sleepErr
		}
	}

	c.errors.Add(1)
	c.logger.Error("request attempts exhausted", "url", rawURL, "attempts", c.cfg.Attempts, "error", lastErr)
	return fmt.Errorf("%s after %d attempts: %w", rawURL, c.cfg.Attempts, lastErr)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3")
}

// wait blocks on the per-host politeness limiter before every request.
func (c *Client) wait(ctx context.Context, rawURL string) error {
	if c.cfg.RequestsPerSecond <= 0 {
		return ctx.Err()
	}

	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	c.mu.Lock()
	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.RequestsPerSecond), 1)
		c.limiters[host] = limiter
	}
	c.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("politeness wait: %w", err)
	}
	return nil
}

// StatusError marks a non-2xx response so retry handling can inspect it.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Status)
}

func statusError(url string, status int) error {
	return &StatusError{URL: url, Status: status}
}

func errorStatus(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return 0, false
}
