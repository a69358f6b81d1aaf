// Package upstream reads legislative records from a ProPublica-shaped congress API.
//
// Payloads are parsed with gjson and mapped onto the record types at this boundary;
// fields legisync does not consume are dropped here.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // provider dates are in congressional (eastern) time

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/fivethreefive/legisync/internal/throttle"
)

const (
	// DefaultMaxTries bounds attempts per request on 429, 5xx and network failures
	DefaultMaxTries = 3

	dateLayout = "2006-01-02"
)

// Eastern is the zone of provider dates and times.
var Eastern = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Caller is the throttled transport.
type Caller interface {
	Call(ctx context.Context, method, endpoint string, payload url.Values) (*throttle.Response, error)
}

// Client fetches vote lists, vote details and bills.
type Client struct {
	caller     Caller
	maxTries   uint
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithMaxTries sets the attempt limit per request.
func WithMaxTries(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

// WithBackOff sets the retry schedule factory.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = f
	}
}

// NewClient creates a client calling through caller.
func NewClient(caller Caller, opts ...Option) *Client {
	c := &Client{
		caller:   caller,
		maxTries: DefaultMaxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get fetches endpoint, retrying transient failures, and returns the parsed body.
func (c *Client) get(ctx context.Context, endpoint string) (gjson.Result, error) {
	operation := func() (gjson.Result, error) {
		resp, err := c.caller.Call(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			var transportErr *throttle.TransportError
			if errors.As(err, &transportErr) && transportErr.Retryable() {
				slog.Warn("Upstream request failed, retrying", "endpoint", endpoint, "error", err)
				return gjson.Result{}, err
			}
			return gjson.Result{}, backoff.Permanent(err)
		}
		if !gjson.ValidBytes(resp.Body) {
			return gjson.Result{}, backoff.Permanent(fmt.Errorf("invalid JSON from %s", endpoint))
		}
		body := gjson.ParseBytes(resp.Body)
		if strings.EqualFold(body.Get("status").String(), "ERROR") {
			msg := body.Get("errors.0.error").String()
			if msg == "" {
				msg = body.Get("errors").Raw
			}
			return gjson.Result{}, backoff.Permanent(&ProviderError{Endpoint: endpoint, Message: msg})
		}
		return body, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
}

// parseDateTime reads a provider date ("2017-11-16") and optional time ("14:00:00")
// in eastern time and returns it in UTC.
func parseDateTime(date, clock string) (time.Time, error) {
	if date == "" {
		return time.Time{}, errors.New("empty date")
	}
	if strings.Contains(date, "T") {
		if t, err := time.Parse(time.RFC3339, date); err == nil {
			return t.UTC(), nil
		}
		date = date[:strings.Index(date, "T")]
	}
	layout, value := dateLayout, date
	if clock != "" {
		layout, value = dateLayout+" 15:04:05", date+" "+clock
	}
	t, err := time.ParseInLocation(layout, value, Eastern)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
