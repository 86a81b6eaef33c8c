// Package shortener calls the external link shortening API on behalf of a chat.
package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/serroba/linkbot/internal/tokens"
	"go.uber.org/zap"
)

var (
	// ErrMissingToken is returned before any network call when no token is supplied.
	ErrMissingToken = errors.New("missing api token")
	// ErrShortenFailed covers transport errors, non-success replies and malformed bodies.
	ErrShortenFailed = errors.New("shorten failed")
)

const (
	// DefaultEndpoint is the shortening API used when none is configured.
	DefaultEndpoint = "https://jalwagame.42web.io/api"
	DefaultTimeout  = 10 * time.Second

	statusSuccess   = "success"
	maxResponseSize = 1 << 20
)

// Shortener resolves one URL to its shortened form.
type Shortener interface {
	Shorten(ctx context.Context, token tokens.Token, rawURL string) (string, error)
}

type response struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
	Shortlink    string `json:"shortlink"`
}

// Client is an HTTP Shortener for the api/url query-string protocol:
//
//	GET <endpoint>?api=<token>&url=<percent-encoded url>
//	{"status": "success", "shortenedUrl": "...", "shortlink": "..."}
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.http = c
	}
}

// WithTimeout bounds each call. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.timeout = d
	}
}

// NewClient creates a client for endpoint, or DefaultEndpoint when empty.
func NewClient(endpoint string, logger *zap.Logger, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &Client{
		endpoint: endpoint,
		http:     http.DefaultClient,
		timeout:  DefaultTimeout,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Shorten(ctx context.Context, token tokens.Token, rawURL string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint: %v", ErrShortenFailed, err)
	}

	query := endpoint.Query()
	query.Set("api", string(token))
	query.Set("url", rawURL)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrShortenFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrShortenFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrShortenFailed, err)
	}

	c.logger.Debug("shortener response",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", body),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: http status %d", ErrShortenFailed, resp.StatusCode)
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrShortenFailed, err)
	}

	if payload.Status != statusSuccess {
		return "", fmt.Errorf("%w: api status %q", ErrShortenFailed, payload.Status)
	}

	switch {
	case payload.ShortenedURL != "":
		return payload.ShortenedURL, nil
	case payload.Shortlink != "":
		return payload.Shortlink, nil
	default:
		return "", fmt.Errorf("%w: response has no short url", ErrShortenFailed)
	}
}

var _ Shortener = (*Client)(nil)
