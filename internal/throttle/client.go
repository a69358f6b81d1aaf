package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fivethreefive/legisync/internal/httpclient"
	"github.com/fivethreefive/legisync/internal/telemetry"
)

const maxErrorBody = 512

// Response is the fully read response of a successful call.
type Response = httpclient.Response

// Client sends every request of one target through a shared Limiter.
type Client struct {
	target     string
	baseURL    string
	limiter    *Limiter
	http       httpclient.Client
	authorizer Authorizer
	metrics    *telemetry.ThrottleMetrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAuthorizer sets the request authorizer.
func WithAuthorizer(a Authorizer) ClientOption {
	return func(c *Client) {
		c.authorizer = a
	}
}

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(h httpclient.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithMetrics records quota waits and request outcomes.
func WithMetrics(m *telemetry.ThrottleMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for target. Relative endpoints are resolved against
// baseURL.
func NewClient(target, baseURL string, limiter *Limiter, opts ...ClientOption) *Client {
	c := &Client{
		target:  target,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		http:    httpclient.NewDefaultClient(0, ""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one logical request. Every attempt consumes quota, including attempts
// that fail in transport. An auth rejection (401) triggers exactly one credential
// refresh and one retry. Non-2xx responses and network failures are *TransportError.
func (c *Client) Call(ctx context.Context, method, endpoint string, payload url.Values) (*Response, error) {
	resp, err := c.attempt(ctx, method, endpoint, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.authorizer != nil {
		slog.Debug("Request rejected as unauthorized, refreshing credentials",
			"target", c.target, "endpoint", endpoint)
		switch err := c.authorizer.Refresh(ctx); {
		case errors.Is(err, ErrRefreshUnsupported):
		case err != nil:
			return nil, err
		default:
			resp, err = c.attempt(ctx, method, endpoint, payload)
			if err != nil {
				return nil, err
			}
		}
	}

	if !resp.OK() {
		body := string(resp.Body)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &TransportError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        httpclient.NewHTTPError(resp.StatusCode, c.resolve(endpoint), http.StatusText(resp.StatusCode)),
		}
	}
	return resp, nil
}

// Limiter returns the shared quota of this client.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, payload url.Values) (*Response, error) {
	waited, err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if waited > 0 {
		slog.Info("Request quota exhausted, waited for next window",
			"target", c.target, "waited", waited)
		c.metrics.RecordWait(ctx, c.target, waited)
	}

	req, err := c.newRequest(ctx, method, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if c.authorizer != nil {
		if err := c.authorizer.Authorize(ctx, req); err != nil {
			return nil, err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRequest(ctx, c.target, "error")
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: err}
	}
	c.metrics.RecordRequest(ctx, c.target, strconv.Itoa(resp.StatusCode))
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, payload url.Values) (*http.Request, error) {
	target := c.resolve(endpoint)

	if method == http.MethodGet || method == http.MethodHead || method == http.MethodDelete {
		if len(payload) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + payload.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		return req, nil
	}

	req, err := http.NewRequestWithContext(ctx, method, target, strings.NewReader(payload.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}
