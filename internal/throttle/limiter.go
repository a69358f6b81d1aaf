// Package throttle implements the rate-limited, authorizing HTTP client used for every
// outbound call. Each target gets one Limiter shared by all of its callers.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fivethreefive/legisync/internal/clock"
)

const (
	// Window is the quota period.
	Window = 60 * time.Second

	// DefaultLimit is the per-window request quota.
	DefaultLimit = 60
)

// RequestWindow is a snapshot of the limiter state. WindowStart is the oldest
// admission still inside the trailing Window, Count the admissions since then.
type RequestWindow struct {
	WindowStart time.Time
	Count       int
	Limit       int
}

// Limiter admits at most limit requests in any trailing Window. Bursts up to the limit
// go through immediately; once the quota is used the caller sleeps until the oldest
// admission leaves the window. Unused quota never carries over.
//
// A single mutex guards the admission log and is held while a caller sleeps, so no
// other request can proceed during the wait.
type Limiter struct {
	mu       sync.Mutex
	clock    clock.Clock
	limit    int
	blocking bool

	// admitted holds the instants of the admissions inside the trailing window,
	// oldest first. len(admitted) <= limit.
	admitted []time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithLimiterClock sets the time source.
func WithLimiterClock(c clock.Clock) LimiterOption {
	return func(l *Limiter) {
		l.clock = c
	}
}

// WithBlocking controls whether an exhausted window blocks (true, the default) or
// fails with RateLimitExceededError.
func WithBlocking(blocking bool) LimiterOption {
	return func(l *Limiter) {
		l.blocking = blocking
	}
}

// NewLimiter creates a limiter allowing limit requests per Window. A non-positive
// limit uses DefaultLimit.
func NewLimiter(limit int, opts ...LimiterOption) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limiter{
		clock:    clock.Real{},
		limit:    limit,
		blocking: true,
		admitted: make([]time.Time, 0, limit),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire consumes one unit of quota, sleeping while the window is exhausted. It
// returns how long the caller waited.
func (l *Limiter) Acquire(ctx context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.expire(now)

	var waited time.Duration
	for len(l.admitted) >= l.limit {
		wait := Window - now.Sub(l.admitted[0])
		if !l.blocking {
			return 0, &RateLimitExceededError{Limit: l.limit, RetryAfter: wait}
		}
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return 0, fmt.Errorf("waiting for request quota: %w", err)
		}
		waited += wait
		now = l.clock.Now()
		l.expire(now)
	}

	l.admitted = append(l.admitted, now)
	return waited, nil
}

// Snapshot returns the current window state.
func (l *Limiter) Snapshot() RequestWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.expire(l.clock.Now())
	w := RequestWindow{Count: len(l.admitted), Limit: l.limit}
	if len(l.admitted) > 0 {
		w.WindowStart = l.admitted[0]
	}
	return w
}

func (l *Limiter) expire(now time.Time) {
	i := 0
	for i < len(l.admitted) && now.Sub(l.admitted[i]) >= Window {
		i++
	}
	if i > 0 {
		l.admitted = append(l.admitted[:0], l.admitted[i:]...)
	}
}
