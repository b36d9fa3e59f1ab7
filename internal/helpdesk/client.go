package helpdesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tessa/caseload/internal/logger"
)

// Config holds configuration for the helpdesk API client.
type Config struct {
	BaseURL string
	Token   string

	// Per-call timeout policy. DefaultTimeout is the ceiling; when the caller
	// passes a step deadline the timeout is clamped down to what remains minus
	// SafetyMargin, and never leaves the [MinTimeout, MaxTimeout] range.
	DefaultTimeout time.Duration
	MinTimeout     time.Duration
	MaxTimeout     time.Duration
	SafetyMargin   time.Duration

	// Rate-limit retry policy. MaxAttempts is the total number of tries for a
	// single logical call; BackoffBase drives the exponential wait when the
	// server does not send Retry-After.
	MaxAttempts int
	BackoffBase time.Duration

	// Calls slower than this are logged at warn level.
	SlowCallThreshold time.Duration
}

// DefaultConfig returns the client defaults used in production.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout:    10 * time.Second,
		MinTimeout:        2 * time.Second,
		MaxTimeout:        15 * time.Second,
		SafetyMargin:      1250 * time.Millisecond,
		MaxAttempts:       3,
		BackoffBase:       time.Second,
		SlowCallThreshold: 5 * time.Second,
	}
}

// Client issues calls to the helpdesk API with deadline-aware timeouts,
// bounded rate-limit retries, and structural error classification. All
// outbound traffic in the report engine goes through this one policy.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *logger.Logger
}

// NewClient creates a helpdesk API client.
// Parameters:
//   - cfg: client configuration; nil uses DefaultConfig.
//   - log: logger instance.
//
// Returns:
//   - *Client: initialized client.
func NewClient(cfg *Config, log *logger.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	http := resty.New()
	http.SetBaseURL(cfg.BaseURL)
	http.SetHeader("Accept", "application/json")
	http.SetHeader("Content-Type", "application/json")
	if cfg.Token != "" {
		http.SetHeader("Authorization", "Bearer "+cfg.Token)
	}
	return &Client{
		http:   http,
		cfg:    *cfg,
		logger: log,
	}
}

func (c *Client) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return c.logger
}

// callTimeout computes the effective timeout for one call: the default
// ceiling, clamped down when the step deadline is closer, and kept inside
// the configured [min, max] range.
func (c *Client) callTimeout(deadline time.Time) time.Duration {
	timeout := c.cfg.DefaultTimeout
	if !deadline.IsZero() {
		remaining := time.Until(deadline) - c.cfg.SafetyMargin
		if remaining < timeout {
			timeout = remaining
		}
	}
	if timeout < c.cfg.MinTimeout {
		timeout = c.cfg.MinTimeout
	}
	if timeout > c.cfg.MaxTimeout {
		timeout = c.cfg.MaxTimeout
	}
	return timeout
}

// do executes one logical call against the API. Rate-limited responses are
// retried in place up to MaxAttempts; every other non-2xx response becomes a
// RemoteError, and a missed deadline becomes a TransientTimeoutError.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}, deadline time.Time) error {
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		timeout := c.callTimeout(deadline)
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()

		req := c.http.R().SetContext(callCtx)
		if body != nil {
			req.SetBody(body)
		}
		if result != nil {
			req.SetResult(result)
		}
		resp, err := req.Execute(method, path)
		timedOut := callCtx.Err() != nil
		cancel()
		elapsed := time.Since(start)

		if err != nil {
			if timedOut || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return &TransientTimeoutError{Path: path, Elapsed: elapsed}
			}
			return fmt.Errorf("helpdesk call %s: %w", path, err)
		}

		if elapsed > c.cfg.SlowCallThreshold {
			c.log(ctx).WithFields(logger.Fields{
				"path":                 path,
				logger.FieldDurationMs: elapsed.Milliseconds(),
				logger.FieldStatus:     resp.StatusCode(),
			}).Warn("Slow helpdesk call")
		}

		status := resp.StatusCode()
		if status == http.StatusTooManyRequests {
			if attempt == c.cfg.MaxAttempts-1 {
				break
			}
			wait := c.backoffDelay(resp, attempt)
			if !deadline.IsZero() && time.Now().Add(wait).After(deadline) {
				return &TransientTimeoutError{Path: path, Elapsed: elapsed}
			}
			c.log(ctx).WithFields(logger.Fields{
				"path":    path,
				"attempt": attempt + 1,
				"wait_ms": wait.Milliseconds(),
			}).Warn("Rate limited by helpdesk API, backing off")
			if err := sleepCtx(ctx, wait); err != nil {
				return &TransientTimeoutError{Path: path, Elapsed: time.Since(start)}
			}
			continue
		}

		if status < 200 || status >= 300 {
			return &RemoteError{
				Status:    status,
				RequestID: resp.Header().Get("X-Request-Id"),
				Message:   strings.TrimSpace(string(resp.Body())),
			}
		}
		return nil
	}

	return &RemoteError{
		Status:  http.StatusTooManyRequests,
		Message: fmt.Sprintf("rate limited after %d attempts", c.cfg.MaxAttempts),
	}
}

// backoffDelay picks the wait before the next attempt: the server-advised
// Retry-After when present, else BackoffBase doubled per attempt.
func (c *Client) backoffDelay(resp *resty.Response, attempt int) time.Duration {
	if ra := resp.Header().Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.cfg.BackoffBase << uint(attempt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
