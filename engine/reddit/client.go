// Package reddit is a small client for the parts of Reddit's OAuth API a
// subreddit scrape needs: listings, comment trees and continuation lookups.
package reddit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/WessleyAI/subreddit-scraper/pkg/config"
	"github.com/WessleyAI/subreddit-scraper/pkg/fn"
)

const (
	// DefaultBaseURL is the host serving authenticated API calls.
	DefaultBaseURL = "https://oauth.reddit.com"
	// DefaultTokenURL issues application-only tokens.
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"
)

// ErrMissingCredentials is returned by New when the client id, secret or
// user agent is empty.
var ErrMissingCredentials = errors.New("reddit: missing credentials")

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	StatusCode int
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit: GET %s: http %d", e.Path, e.StatusCode)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config controls the client.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	BaseURL      string
	TokenURL     string
	// RequestsPerSecond paces API calls. Zero or less disables pacing.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	Retry             fn.RetryOpts
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the OAuth2 transport. The given client is used as is,
// so it must authenticate requests itself if the target needs it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to the Reddit API. It is not safe for concurrent scrapes: the
// limiter and token source are shared by every call.
type Client struct {
	cfg     Config
	hc      *http.Client
	http    *resty.Client
	limiter *rate.Limiter
	retry   fn.RetryOpts
	logger  *slog.Logger
}

// New creates a Client. Unless WithHTTPClient is given, requests carry an
// application-only OAuth2 token obtained with the client credentials grant.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.UserAgent == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	c := &Client{cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}

	if c.hc == nil {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		// The token endpoint rejects requests without a descriptive User-Agent.
		base := &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &userAgentTransport{ua: cfg.UserAgent, next: http.DefaultTransport},
		}
		c.hc = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	c.limiter = rate.NewLimiter(limit, cfg.Burst)

	c.retry = cfg.Retry
	if c.retry.Retryable == nil {
		c.retry.Retryable = retryable
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("reddit request failed, retrying", "attempt", attempt, "wait", wait, "err", err)
		}
	}

	c.http = resty.NewWithClient(c.hc).
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)
	return c, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// getJSON performs a paced, retried GET and decodes the JSON response.
func getJSON[T any](ctx context.Context, c *Client, path string, params url.Values) (T, error) {
	params.Set("raw_json", "1")
	result := fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[*T] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[*T](err)
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			SetResult(new(T)).
			ForceContentType("application/json").
			Get(path)
		if err != nil {
			return fn.Err[*T](fmt.Errorf("reddit: GET %s: %w", path, err))
		}
		if resp.IsError() {
			return fn.Err[*T](&StatusError{StatusCode: resp.StatusCode(), Path: path})
		}
		out, ok := resp.Result().(*T)
		if !ok || out == nil {
			return fn.Err[*T](fmt.Errorf("reddit: GET %s: empty response", path))
		}
		return fn.Ok(out)
	})
	out, err := result.Unwrap()
	if err != nil {
		var zero T
		return zero, err
	}
	return *out, nil
}

type userAgentTransport struct {
	ua   string
	next http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r)
}

// ConfigFrom maps application settings onto a client Config.
func ConfigFrom(c *config.Config) Config {
	return Config{
		ClientID:          c.ClientID,
		ClientSecret:      c.ClientSecret,
		UserAgent:         c.UserAgent,
		BaseURL:           c.APIURL,
		TokenURL:          c.TokenURL,
		RequestsPerSecond: c.RateLimit,
		Burst:             c.RateBurst,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		Retry:             fn.DefaultRetry,
	}
}
