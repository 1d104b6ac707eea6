package api

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
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL = "http://localhost:8080"
	// DefaultTimeout bounds every request without its own timeout.
	DefaultTimeout = 10 * time.Second
	// HeaderCorrelationID carries the per-request correlation id.
	HeaderCorrelationID = "X-Correlation-Id"

	maxBodyBytes = 4 << 20
)

// Config defines the backend location and request timeouts.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	OrderTimeout      time.Duration
	OrdersListTimeout time.Duration
}

// TokenSource returns the current bearer token, or "" when there is none.
type TokenSource func() string

// InvalidationListener is called once for every 401/403 response.
type InvalidationListener func(ctx context.Context, reason string)

// RequestInfo is reported to a RequestObserver after each call.
type RequestInfo struct {
	Endpoint string
	Method   string
	Status   int
	Duration time.Duration
	Err      *Error
}

// RequestObserver receives RequestInfo for metrics.
type RequestObserver func(RequestInfo)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.token = ts
	}
}

// WithRequestObserver registers a per-request callback.
func WithRequestObserver(o RequestObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// Client calls the marketplace REST backend. Every response goes through one
// classification step; 401/403 additionally notify the invalidation listener.
type Client struct {
	cfg      Config
	base     *url.URL
	http     *http.Client
	logger   *zap.Logger
	token    TokenSource
	observer RequestObserver

	listener atomic.Pointer[InvalidationListener]
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 30 * time.Second
	}
	if cfg.OrdersListTimeout <= 0 {
		cfg.OrdersListTimeout = 15 * time.Second
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", cfg.BaseURL)
	}

	c := &Client{
		cfg:    cfg,
		base:   base,
		http:   http.DefaultClient,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetInvalidationListener installs fn as the single consumer of the
// "session invalidated" event. A nil fn detaches the current listener.
func (c *Client) SetInvalidationListener(fn InvalidationListener) {
	if fn == nil {
		c.listener.Store(nil)
		return
	}
	c.listener.Store(&fn)
}

// BaseURL returns the resolved backend URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

type call struct {
	endpoint string
	method   string
	path     string
	body     any
	out      any
	timeout  time.Duration
	anon     bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	timeout := cl.timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	status, err := c.roundTrip(ctx, cl)

	var apiErr *Error
	errors.As(err, &apiErr)
	if c.observer != nil {
		c.observer(RequestInfo{
			Endpoint: cl.endpoint,
			Method:   cl.method,
			Status:   status,
			Duration: time.Since(start),
			Err:      apiErr,
		})
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, cl call) (int, error) {
	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return 0, fmt.Errorf("api: encode %s body: %w", cl.endpoint, err)
		}
		body = bytes.NewReader(raw)
	}

	u := c.base.ResolveReference(&url.URL{Path: strings.TrimRight(c.base.Path, "/") + cl.path})
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return 0, fmt.Errorf("api: build %s request: %w", cl.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cid := CorrelationID(ctx)
	if cid == "" {
		cid = uuid.NewString()
	}
	req.Header.Set(HeaderCorrelationID, cid)
	if !cl.anon && c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := classifyTransport(cl.method, cl.path, err)
		c.logger.Warn("api request failed",
			zap.String("endpoint", cl.endpoint),
			zap.String("correlation_id", cid),
			zap.String("code", apiErr.Code),
			zap.Error(err),
		)
		return 0, apiErr
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := classifyStatus(cl.method, cl.path, resp.StatusCode, raw)
		c.logger.Info("api request rejected",
			zap.String("endpoint", cl.endpoint),
			zap.String("correlation_id", cid),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		if apiErr.Kind == KindAuth {
			c.invalidate(ctx, fmt.Sprintf("%s %s returned %d", cl.method, cl.path, resp.StatusCode))
		}
		return resp.StatusCode, apiErr
	}
	if readErr != nil {
		return resp.StatusCode, classifyTransport(cl.method, cl.path, readErr)
	}

	c.logger.Debug("api request",
		zap.String("endpoint", cl.endpoint),
		zap.String("correlation_id", cid),
		zap.Int("status", resp.StatusCode),
	)
	if err := decodeInto(raw, cl.out); err != nil {
		return resp.StatusCode, classifyDecode(cl.method, cl.path, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) invalidate(ctx context.Context, reason string) {
	fn := c.listener.Load()
	if fn == nil {
		return
	}
	// the request context may already be at its deadline
	(*fn)(context.WithoutCancel(ctx), reason)
}

// decodeInto fills out from raw. A *string receives either a JSON string or
// the plain-text body; nil out discards the body.
func decodeInto(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			return json.Unmarshal(trimmed, s)
		}
		*s = string(trimmed)
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(raw, out)
}

type correlationKey struct{}

// WithCorrelationID makes requests issued with ctx carry id instead of a fresh
// uuid.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
