// Package odoo is the transport gateway to the Odoo external API. It speaks
// XML-RPC over HTTP to the common and object endpoints and caches the
// authenticated session.
package odoo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
	"github.com/Daytona2026/Warmano-webseite/internal/telemetry"
)

const (
	commonPath = "/xmlrpc/2/common"
	objectPath = "/xmlrpc/2/object"

	defaultCallTimeout = 15 * time.Second
	defaultUserAgent   = "warmano-gateway/1.0"
	maxResponseBytes   = 16 << 20
)

// Credentials identify the backend and the integration user. They are fixed
// for the life of the process.
type Credentials struct {
	BaseURL  string
	Database string
	Username string
	APIKey   string
}

// Session is an authenticated backend session.
type Session struct {
	UID       int64
	ExpiresAt time.Time
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCallTimeout bounds every single HTTP exchange.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithSessionTTL sets how long an authenticated uid is reused. Zero
// authenticates before every call.
func WithSessionTTL(d time.Duration) ClientOption {
	return func(c *Client) {
		c.sessionTTL = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records call latency on m.
func WithMetrics(m *telemetry.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides the time source used for session expiry.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// Client calls the Odoo XML-RPC API.
type Client struct {
	creds       Credentials
	httpClient  *http.Client
	callTimeout time.Duration
	sessionTTL  time.Duration
	logger      *slog.Logger
	metrics     *telemetry.Metrics
	now         func() time.Time

	mu      sync.Mutex
	session *Session
}

// NewClient creates a new Odoo client.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	creds.BaseURL = strings.TrimSuffix(creds.BaseURL, "/")
	c := &Client{
		creds: creds,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		callTimeout: defaultCallTimeout,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.creds.BaseURL }

// Authenticate exchanges the credentials for a uid. It always talks to the
// backend and does not touch the session cache.
func (c *Client) Authenticate(ctx context.Context) (Session, error) {
	result, err := c.call(ctx, commonPath, "authenticate",
		xmlrpc.Text(c.creds.Database),
		xmlrpc.Text(c.creds.Username),
		xmlrpc.Text(c.creds.APIKey),
		xmlrpc.Struct(nil),
	)
	if err != nil {
		var fault *RemoteFault
		if errors.As(err, &fault) {
			return Session{}, &AuthError{Username: c.creds.Username, Err: err}
		}
		return Session{}, err
	}

	uid, ok := result.Int()
	if !ok || uid <= 0 {
		return Session{}, &AuthError{Username: c.creds.Username}
	}
	return Session{UID: uid, ExpiresAt: c.now().Add(c.sessionTTL)}, nil
}

// Ping authenticates against the backend and returns the uid. Used as a
// connection test.
func (c *Client) Ping(ctx context.Context) (int64, error) {
	s, err := c.Authenticate(ctx)
	if err != nil {
		return 0, err
	}
	return s.UID, nil
}

// Version returns the backend's version struct from the common endpoint.
func (c *Client) Version(ctx context.Context) (xmlrpc.Value, error) {
	return c.call(ctx, commonPath, "version")
}

// Invalidate drops the cached session.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

// currentSession returns the cached session or authenticates. The lock is
// held across authentication so concurrent callers share one login.
func (c *Client) currentSession(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.now().Before(c.session.ExpiresAt) {
		return *c.session, nil
	}

	s, err := c.Authenticate(ctx)
	if err != nil {
		return Session{}, err
	}
	if c.sessionTTL > 0 {
		c.session = &s
	}
	return s, nil
}

// Execute runs execute_kw for model.method. args and kwargs are converted
// with xmlrpc.FromGo; a nil kwargs map is sent as an empty struct. If the
// backend rejects the cached session the call is repeated once with a fresh
// one.
func (c *Client) Execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (xmlrpc.Value, error) {
	start := c.now()
	result, err := c.execute(ctx, model, method, args, kwargs)

	var (
		fault *RemoteFault
		auth  *AuthError
	)
	if errors.As(err, &fault) && fault.sessionInvalid() && !errors.As(err, &auth) {
		c.logger.WarnContext(ctx, "odoo session rejected, re-authenticating",
			slog.String("model", model),
			slog.String("method", method),
		)
		c.Invalidate()
		result, err = c.execute(ctx, model, method, args, kwargs)
	}

	c.metrics.ObserveRemoteCall(model, method, outcome(err), c.now().Sub(start))
	if err != nil {
		return xmlrpc.Value{}, &RemoteError{Model: model, Method: method, Err: err}
	}
	return result, nil
}

func (c *Client) execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (xmlrpc.Value, error) {
	argv, err := xmlrpc.FromGo(args)
	if err != nil {
		return xmlrpc.Value{}, fmt.Errorf("failed to encode args: %w", err)
	}
	kw := xmlrpc.Struct(nil)
	if kwargs != nil {
		kw, err = xmlrpc.FromGo(kwargs)
		if err != nil {
			return xmlrpc.Value{}, fmt.Errorf("failed to encode kwargs: %w", err)
		}
	}

	session, err := c.currentSession(ctx)
	if err != nil {
		return xmlrpc.Value{}, err
	}

	return c.call(ctx, objectPath, "execute_kw",
		xmlrpc.Text(c.creds.Database),
		xmlrpc.Int(session.UID),
		xmlrpc.Text(c.creds.APIKey),
		xmlrpc.Text(model),
		xmlrpc.Text(method),
		argv,
		kw,
	)
}

// call performs one XML-RPC exchange bounded by the per-call timeout.
func (c *Client) call(ctx context.Context, path, method string, params ...xmlrpc.Value) (xmlrpc.Value, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	endpoint := c.creds.BaseURL + path
	body := xmlrpc.EncodeCall(method, params...)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return xmlrpc.Value{}, &TransportError{Endpoint: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "text/xml")
	httpReq.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return xmlrpc.Value{}, &TransportError{Endpoint: path, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return xmlrpc.Value{}, &TransportError{Endpoint: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return xmlrpc.Value{}, &TransportError{Endpoint: path, StatusCode: resp.StatusCode}
	}

	result, err := xmlrpc.DecodeResponse(respBody)
	if err != nil {
		var fault *xmlrpc.Fault
		if errors.As(err, &fault) {
			return xmlrpc.Value{}, &RemoteFault{Fault: fault}
		}
		return xmlrpc.Value{}, &TransportError{Endpoint: path, Err: err}
	}
	return result, nil
}
