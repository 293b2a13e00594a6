// Package http provides HTTP client infrastructure for Google API
// interactions with built-in rate limiting and typed error handling.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps an HTTP client with rate limiting and uniform error mapping.
type Client struct {
	base   *http.Client
	config *Config
}

// Config holds HTTP client configuration.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// User agent for HTTP requests
	UserAgent string

	// RequestsPerSecond caps the outbound request rate (0 = unlimited)
	RequestsPerSecond float64

	// Burst is the token bucket burst size
	Burst int

	// Connection pool configuration
	Transport TransportConfig
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections across all hosts.
	// Default: 20
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int

	// MaxConnsPerHost is the maximum concurrent connections per host.
	// Default: 20
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle connection can remain open.
	// Default: 90 seconds
	IdleConnTimeout time.Duration

	// ForceAttemptHTTP2 forces HTTP/2 for connections to servers that don't explicitly support it.
	// Default: true
	ForceAttemptHTTP2 bool
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		UserAgent:         "likevault/1.0",
		RequestsPerSecond: 2.0,
		Burst:             4,
		Transport:         DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible defaults for HTTP transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// New creates a new HTTP client with the given configuration.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	pool := &http.Transport{
		MaxIdleConns:        cfg.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.Transport.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		ForceAttemptHTTP2:   cfg.Transport.ForceAttemptHTTP2,
	}

	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: NewRateLimitedTransport(pool, cfg.RequestsPerSecond, cfg.Burst, cfg.UserAgent),
	}

	return &Client{
		base:   base,
		config: cfg,
	}
}

// Response represents an HTTP response with status code and body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get performs a GET request with the given headers.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, headers)
}

// Do performs an HTTP request. A non-2xx status is returned as *HTTPError;
// a transport failure wraps ErrRequestFailed.
func (c *Client) Do(ctx context.Context, method, urlStr string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return nil, err
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// GetJSON performs a GET request and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, v interface{}) error {
	resp, err := c.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// HTTPClient exposes the underlying rate-limited *http.Client, for APIs
// that take their transport via dependency injection.
func (c *Client) HTTPClient() *http.Client {
	return c.base
}

// Close closes the HTTP client connections and releases all resources.
func (c *Client) Close() error {
	if c.base != nil {
		c.base.CloseIdleConnections()
	}
	return nil
}
