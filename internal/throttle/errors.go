package throttle

import (
	"errors"
	"fmt"
	"time"
)

// ErrRefreshUnsupported is returned by authorizers whose credentials cannot be renewed.
var ErrRefreshUnsupported = errors.New("credential refresh not supported")

// TransportError reports a network failure or a non-success HTTP status.
type TransportError struct {
	Method   string
	Endpoint string
	// StatusCode is zero for network failures.
	StatusCode int
	// Body holds the start of the response body for non-success statuses.
	Body string
	Err  error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt later in the pass:
// network failures, 429 and 5xx.
func (e *TransportError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode
	}
	return 0
}

// RateLimitExceededError is returned by a non-blocking limiter whose window is exhausted.
type RateLimitExceededError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("request quota of %d per minute exhausted, retry after %s", e.Limit, e.RetryAfter)
}
