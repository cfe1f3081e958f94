// Package transport provides the HTTP client behind the domain
// transport boundary. Every failure it returns is classified into the
// domain taxonomy: network for round trips that never produced a usable
// response, request for non-2xx statuses, serialization for payloads
// that could not be encoded or decoded.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/querykit"
	"github.com/felixgeelhaar/querykit/domain/transport"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// ErrInvalidBaseURL indicates the configured base URL cannot be used.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the API root every request path is resolved against.
	BaseURL string

	// Timeout bounds each round trip. Ignored when Client is set.
	Timeout time.Duration

	// Headers are sent with every request.
	Headers map[string]string

	// MaxBodySize limits response body size (bytes). Zero means no limit.
	MaxBodySize int64

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Client overrides the underlying *http.Client.
	Client *http.Client
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		MaxBodySize: 10 * 1024 * 1024, // 10MB
		UserAgent:   "querykit/" + querykit.Version,
	}
}

// Option configures the client.
type Option func(*Config)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[key] = value
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.Headers[k] = v
		}
	}
}

// WithMaxBodySize limits response body size in bytes.
func WithMaxBodySize(n int64) Option {
	return func(c *Config) {
		c.MaxBodySize = n
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.Client = hc
	}
}

// Client is an HTTP implementation of the transport boundary.
type Client struct {
	base      *url.URL
	client    *http.Client
	headers   map[string]string
	maxBody   int64
	userAgent string
}

var _ transport.Transport = (*Client)(nil)

// New creates a client for the given API root.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewFromConfig(cfg)
}

// NewFromConfig creates a client from a complete configuration.
func NewFromConfig(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidBaseURL, base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "querykit/" + querykit.Version
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Client{
		base:      base,
		client:    hc,
		headers:   headers,
		maxBody:   cfg.MaxBodySize,
		userAgent: userAgent,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Request performs one round trip and returns the raw response body.
func (c *Client) Request(ctx context.Context, method, path string, opts transport.Options) ([]byte, error) {
	target := c.resolve(path, opts.Params)

	var bodyReader io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, transport.NewSerializationError(method, path, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, transport.NewNetworkError(method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Header {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transport.NewNetworkError(method, path, err)
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp.Body)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			return nil, transport.NewSerializationError(method, path, err)
		}
		return nil, transport.NewNetworkError(method, path, err)
	}

	logging.Debug().
		Add(logging.Method(method)).
		Add(logging.Endpoint(path)).
		Add(logging.StatusCode(resp.StatusCode)).
		Add(logging.Duration(time.Since(start))).
		Add(logging.Component("transport")).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transport.NewRequestError(method, path, resp.StatusCode, errorMessage(body))
	}

	return body, nil
}

// resolve joins the base URL with a request path and encodes the query
// parameters. The path is taken as already escaped, so callers can
// url.PathEscape individual segments without them being escaped twice.
// url.Values.Encode sorts by key, which keeps URLs stable across calls
// with the same parameters.
func (c *Client) resolve(path string, params map[string]string) string {
	u := *c.base
	if path != "" {
		u = *c.base.JoinPath(path)
	}
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

var errBodyTooLarge = errors.New("response body exceeds size limit")

// readBody reads the response body, enforcing the configured size cap.
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	if c.maxBody <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: %d bytes", errBodyTooLarge, c.maxBody)
	}
	return body, nil
}

// errorMessage extracts a human-readable message from an error response
// body. The backend wraps failures as {"error": ...} with optional
// message and detail fields; plain-text bodies pass through trimmed.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, s := range []string{payload.Error, payload.Message, payload.Detail} {
			if s != "" {
				return s
			}
		}
	}

	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
