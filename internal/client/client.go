package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"tap_amazon_ads/internal/metrics"
)

const (
	DefaultBaseURL        = "https://advertising-api.amazon.com"
	DefaultTimeout        = 300 * time.Second
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = 2 * time.Second

	headerClientID = "Amazon-Advertising-API-ClientId"
	headerScope    = "Amazon-Advertising-API-Scope"
)

// ErrUnsupportedMethod is returned for anything other than GET and POST.
var ErrUnsupportedMethod = errors.New("unsupported method")

// Config holds vendor API client configuration.
type Config struct {
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	UserAgent      string
	ProfileID      string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Request describes one logical API call. Endpoint, when set, overrides BaseURL+Path.
type Request struct {
	Method   string
	Endpoint string
	Path     string
	Params   map[string]string
	Headers  map[string]string
	// OmitContentType drops the Content-Type header for requests without a body.
	OmitContentType bool
	Body            map[string]any
	SkipAuth        bool
}

// Client is the single chokepoint for vendor API traffic. It is not safe for
// concurrent use; the sync engine issues requests one at a time.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokenHTTP  *http.Client
	oauth      *oauth2.Config
	cred       *credential
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Client)

// WithClock replaces time.Now for token expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	cfg.setDefaults()

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		now:    time.Now,
		logger: logger.With("component", "client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.tokenHTTP = &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: userAgentTransport{base: c.httpClient.Transport, userAgent: cfg.UserAgent},
	}

	return c
}

func (cfg *Config) setDefaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
}

// BaseURL returns the resolved vendor API base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Open refreshes the access token eagerly.
func (c *Client) Open(ctx context.Context) error {
	return c.refreshAccessToken(ctx)
}

// Close releases pooled connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// WithClient opens a client, runs fn and always closes it afterwards.
func WithClient(ctx context.Context, cfg Config, logger *slog.Logger, fn func(*Client) error, opts ...Option) error {
	c := New(cfg, logger, opts...)
	defer c.Close()

	if err := c.Open(ctx); err != nil {
		return fmt.Errorf("open client: %w", err)
	}
	return fn(c)
}

// Do sends req and returns the decoded JSON body.
func (c *Client) Do(ctx context.Context, req Request) (any, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	headers := canonical(req.Headers)
	if !req.SkipAuth {
		var err error
		headers, err = c.authenticate(ctx, req.Headers, req.OmitContentType)
		if err != nil {
			return nil, err
		}
	}

	var payload []byte
	if req.Method == http.MethodPost {
		body := req.Body
		if body == nil {
			body = map[string]any{}
		}
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}

	var result any
	err := c.retry(ctx, func() error {
		r, err := c.dispatch(ctx, req.Method, endpoint, req.Params, headers, payload)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

func (c *Client) baseHeaders() map[string]string {
	headers := map[string]string{
		"User-Agent":   c.cfg.UserAgent,
		headerClientID: c.cfg.ClientID,
		"Content-Type": "application/json",
	}
	if c.cfg.ProfileID != "" {
		headers[headerScope] = c.cfg.ProfileID
	}
	return headers
}

func (c *Client) authenticate(ctx context.Context, extra map[string]string, omitContentType bool) (map[string]string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	headers := c.baseHeaders()
	for k, v := range extra {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	if omitContentType {
		delete(headers, "Content-Type")
	}
	headers["Authorization"] = "Bearer " + token
	return headers, nil
}

// retry runs op with exponential backoff until it succeeds, fails permanently
// or MaxAttempts attempts have been made.
func (c *Client) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.metrics.Retry()
		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
	})
}

func (c *Client) dispatch(ctx context.Context, method, endpoint string, params, headers map[string]string, payload []byte) (any, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if len(params) > 0 {
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("read body: %w", err)}
	}

	if err := RaiseForStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	c.logger.Debug("request completed",
		"method", method,
		"url", req.URL.Path,
		"status", resp.StatusCode,
	)

	return decodeBody(raw)
}

func decodeBody(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func canonical(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}

// transportError marks failures below the HTTP layer: resets, refused
// connections, timeouts and truncated bodies.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// classifyTransport marks err transient only when it is a recognised transport
// fault. Anything else, such as a bad URL scheme or a failed certificate
// check, is returned as is and fails without retrying.
func classifyTransport(err error) error {
	if isTransportFault(err) {
		return &transportError{err: err}
	}
	return fmt.Errorf("send request: %w", err)
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return base.RoundTrip(req)
}
