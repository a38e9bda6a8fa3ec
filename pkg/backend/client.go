package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/quorumlabs/council/pkg/chats/chat"
)

// DefaultTimeout is the per-request timeout applied when neither the client
// nor the call options specify one.
const DefaultTimeout = 120 * time.Second

// Auth holds authentication settings for a backend API.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// Options carries per-call settings. Backends ignore fields that are
// meaningless to them: passing a Stage label to a backend that does not use
// one is a documented no-op, never an error.
type Options struct {
	// Timeout bounds this single request. Zero falls back to the client's
	// default, then to DefaultTimeout.
	Timeout time.Duration

	// Stage is an optional pipeline-stage label attached to request logs by
	// backends that support it.
	Stage string

	// Temperature overrides the sampling temperature when non-nil, for
	// backends that accept one.
	Temperature *float64

	// RetryOnRateLimit re-issues the request once, synchronously, after a
	// rate-limit-class failure before giving up.
	RetryOnRateLimit bool
}

// Querier issues one model query. Implementations must not return transport
// or backend failures to the caller: every failure path logs its cause and
// yields the absent Result.
type Querier interface {
	Query(ctx context.Context, model string, c *chat.Chat, opts Options) Result
}

// Client holds shared state for backend client implementations. Embed it in
// concrete backend structs to get HTTP helpers, auth, custom headers, and
// structured logging. Configuration is read once at construction and treated
// as immutable for the process lifetime.
type Client struct {
	BaseURL string            // API base URL (no trailing slash).
	Auth    Auth              // Authentication settings.
	Client  *http.Client      // HTTP client; falls back to a cached default.
	Headers map[string]string // Extra headers applied to every request.
	Log     *slog.Logger      // Logger; falls back to slog.Default.
	Timeout time.Duration     // Default per-request timeout; zero means DefaultTimeout.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// Logger returns the configured logger or slog.Default.
func (c *Client) Logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// RequestTimeout resolves the effective timeout for one request.
func (c *Client) RequestTimeout(opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// httpClient returns the configured client or a cached default. The default
// carries no client-level timeout; request deadlines come from the context.
func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}

	c.clientOnce.Do(func() {
		c.defaultClient = &http.Client{}
	})

	return c.defaultClient
}

// NewRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := c.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	// Apply auth.
	if c.Auth.Key != "" {
		header := c.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := c.Auth.Key
		if header == "Authorization" {
			scheme := c.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if c.Auth.Scheme != "" {
			value = c.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	// Apply custom headers.
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
}

// PostJSON marshals payload as JSON, sends a POST to the given path, checks
// for a 2xx status, and unmarshals the response body into dest. A 429
// response is returned as *RateLimitError; any other non-2xx status as
// *StatusError. If dest is nil the response body is discarded after the
// status check.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := c.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(resp.Body)
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(respBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
