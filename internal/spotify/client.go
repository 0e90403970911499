package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wbru/vibematch/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Spotify Web API root.
	DefaultBaseURL = "https://api.spotify.com/v1"

	// requestTimeout bounds a single HTTP attempt.
	requestTimeout = 10 * time.Second

	// maxRateLimitRetries caps how often a single logical request obeys a 429
	// before giving up.
	maxRateLimitRetries = 5

	// defaultRetryAfter applies when a 429 carries no Retry-After header.
	defaultRetryAfter = time.Second
)

// TokenSource supplies valid bearer tokens and accepts invalidation when the
// API rejects one. Implemented by [auth.Manager].
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// APIError is a terminal non-2xx response from the Spotify API, carrying
// enough upstream detail to be rendered to an operator.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// Client issues authenticated requests against the Spotify API, transparently
// recovering from rate limiting (429 + Retry-After) and one-shot credential
// expiry (401 → forced refresh → single retry).
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// ClientOpts contains configuration for creating a [Client].
type ClientOpts struct {
	BaseURL    string // defaults to DefaultBaseURL
	Tokens     TokenSource
	HTTPClient *http.Client
	RateLimit  float64 // client-side requests per second; 0 disables the local limiter
	Logger     *log.Logger
}

// NewClient creates a new resilient Spotify API [Client].
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		tokens:     opts.Tokens,
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		logger:     opts.Logger,
		sleep:      sleepContext,
	}
}

// Do issues one logical request against the API and decodes a 2xx JSON
// response into result when result is non-nil.
//
// Token-layer failures propagate unchanged. A second 401 after a forced
// refresh terminates with [shared.ErrAuthDenied]; any other non-2xx status is
// a terminal [*APIError]. The retry state lives in this call frame only.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	rateRetries := 0
	authRetried := false

	for {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		status, header, respBody, err := c.attempt(ctx, method, endpoint, token, payload)
		if err != nil {
			return err
		}

		switch {
		case status == http.StatusTooManyRequests:
			if rateRetries >= maxRateLimitRetries {
				return &APIError{Status: status, Body: string(respBody)}
			}
			rateRetries++
			delay := parseRetryAfter(header)
			c.logger.Warn("rate limited, backing off", "delay", delay, "attempt", rateRetries)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}

		case status == http.StatusUnauthorized:
			if authRetried {
				return fmt.Errorf("%w: persistent 401 from %s", shared.ErrAuthDenied, endpoint)
			}
			authRetried = true
			c.logger.Info("bearer token rejected, forcing refresh", "endpoint", endpoint)
			c.tokens.Invalidate()

		case status < 200 || status >= 300:
			return &APIError{Status: status, Body: string(respBody)}

		default:
			if result == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}
	}
}

// attempt performs a single HTTP round trip with a bounded timeout.
func (c *Client) attempt(ctx context.Context, method, endpoint, token string, payload []byte) (int, http.Header, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, nil, ctx.Err()
		}
		return 0, nil, nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// parseRetryAfter extracts the server-requested backoff from a 429 response;
// falls back to defaultRetryAfter when the header is absent or malformed.
//
// The header value is whole seconds per RFC 6585.
func parseRetryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

// sleepContext waits for d or until the context is canceled, whichever is first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
