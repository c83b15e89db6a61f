// Package remote implements the authenticated RemoteClient abstraction from
// spec.md §4.2: single-flight re-authentication, configurable timeouts,
// optional proxy, and the 401-retry-once policy.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pyplyn/pyplyn/internal/connector"
)

// ErrUnauthorized marks a 401 response or a failed auth exchange, per
// spec.md §7.
var ErrUnauthorized = errors.New("remote: unauthorized")

// Authenticator performs the actual credential exchange against a remote
// service, returning an opaque bearer token (or any auth artifact the
// concrete protocol needs) applied to subsequent requests via Apply.
type Authenticator interface {
	// Authenticate exchanges username/password for a token. password is
	// zeroed by the caller immediately after this call returns.
	Authenticate(ctx context.Context, httpClient *http.Client, endpoint, username string, password []byte) (token string, err error)
	// Apply attaches the token to an outgoing request.
	Apply(req *http.Request, token string)
}

// Client is the production RemoteClient: one per (endpoint, serviceClass)
// tuple, shared across all concurrent pipelines touching that endpoint
// (spec.md §3 Ownership).
type Client struct {
	conn   connector.Connector
	auth   Authenticator
	http   *http.Client

	authenticated atomic.Bool
	authMu        sync.Mutex
	flight        singleflight.Group
	token         string
}

// New constructs a Client for conn using auth as the credential exchange
// strategy. The underlying http.Client's timeouts are derived from conn's
// connect/read/write timeouts, and its transport is routed through conn's
// proxy if one is declared (spec.md §4.2 "Proxy").
func New(conn connector.Connector, auth Authenticator) (*Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: conn.ConnectTimeout,
		}).DialContext,
	}
	if conn.HasProxy() {
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("%s:%d", conn.ProxyHost, conn.ProxyPort),
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   conn.ReadTimeout + conn.WriteTimeout,
	}

	return &Client{conn: conn, auth: auth, http: httpClient}, nil
}

// IsAuthenticated reports whether the client currently holds a valid token.
func (c *Client) IsAuthenticated() bool {
	return c.authenticated.Load()
}

// ResetAuth drops the current token, forcing the next Authenticate call to
// perform a fresh exchange.
func (c *Client) ResetAuth() {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	c.authenticated.Store(false)
	c.token = ""
}

// Authenticate ensures exactly one underlying auth exchange happens even
// when N goroutines call it concurrently while unauthenticated: the
// per-client lock is acquired, IsAuthenticated is re-checked inside the
// lock, and singleflight.Group coalesces concurrent exchanges that race
// past the re-check into a single call, per spec.md §4.2 and the invariant
// in spec.md §8.
func (c *Client) Authenticate(ctx context.Context) error {
	c.authMu.Lock()
	if c.authenticated.Load() {
		c.authMu.Unlock()
		return nil
	}
	c.authMu.Unlock()

	_, err, _ := c.flight.Do("authenticate", func() (any, error) {
		c.authMu.Lock()
		defer c.authMu.Unlock()
		if c.authenticated.Load() {
			return nil, nil
		}

		pw, err := c.conn.Password()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		defer connector.Zero(pw)

		token, err := c.auth.Authenticate(ctx, c.http, c.conn.Endpoint, c.conn.Username, pw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		c.token = token
		c.authenticated.Store(true)
		return nil, nil
	})
	return err
}

// Execute issues req once. A 401 response is surfaced as ErrUnauthorized
// without being retried here — retry-once is ExecuteWithAuthRetry's job.
// Any other response, including non-401 statuses >= 400, is returned as is
// for the caller to inspect; a transport (I/O) error is returned as an
// error. Neither is retried or logged here, and Execute takes no default
// value to substitute on failure.
func (c *Client) Execute(req *http.Request) (*http.Response, error) {
	c.auth.Apply(req, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: transport error: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrUnauthorized
	}
	return resp, nil
}

// ExecuteWithAuthRetry implements the auth-retry policy of spec.md §4.2: on
// a 401, the request is cancelled, ResetAuth+Authenticate are invoked, and
// an equivalent fresh request (built by newReq) is retried exactly once. A
// second 401 propagates as ErrUnauthorized.
func (c *Client) ExecuteWithAuthRetry(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	req, err := newReq()
	if err != nil {
		return nil, err
	}
	resp, err := c.Execute(req)
	if err == nil {
		return resp, nil
	}
	if !errors.Is(err, ErrUnauthorized) {
		return nil, err
	}

	c.ResetAuth()
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	retryReq, err := newReq()
	if err != nil {
		return nil, err
	}
	return c.Execute(retryReq)
}

// ReadTimeout returns the connector's configured read timeout so callers can
// bound a context before calling Execute.
func (c *Client) ReadTimeout() time.Duration {
	return c.conn.ReadTimeout
}

// Endpoint returns the connector's base endpoint URL, for building request
// paths in protocol-specific fetch code.
func (c *Client) Endpoint() string {
	return c.conn.Endpoint
}
