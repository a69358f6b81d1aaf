// Package credential owns the publish target's bearer token and refreshes it ahead of
// expiry.
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fivethreefive/legisync/internal/clock"
)

const (
	// DefaultLifetime applies when the token endpoint does not state expires_in.
	DefaultLifetime = 3600 * time.Second

	// DefaultMarginRatio is the share of a token's lifetime reserved as safety margin
	// when no explicit margin is configured.
	DefaultMarginRatio = 0.10

	refreshKey = "refresh"
)

// Credential is an issued bearer token. It is replaced wholesale on refresh.
type Credential struct {
	Token    string
	IssuedAt time.Time
	Expiry   time.Time
}

// Lifetime returns Expiry - IssuedAt.
func (c Credential) Lifetime() time.Duration {
	return c.Expiry.Sub(c.IssuedAt)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithSafetyMargin sets a fixed refresh margin. Zero keeps the 10% default.
func WithSafetyMargin(d time.Duration) Option {
	return func(m *Manager) {
		m.margin = d
	}
}

// Manager hands out valid credentials. Safe for concurrent use.
type Manager struct {
	exchanger Exchanger
	clock     clock.Clock
	margin    time.Duration

	current atomic.Pointer[Credential]
	group   singleflight.Group
}

// NewManager creates a manager. No exchange happens until the first Current call.
func NewManager(exchanger Exchanger, opts ...Option) *Manager {
	m := &Manager{
		exchanger: exchanger,
		clock:     clock.Real{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns a credential that is valid for at least the safety margin,
// refreshing first when needed.
func (m *Manager) Current(ctx context.Context) (Credential, error) {
	if cred := m.current.Load(); cred != nil && !m.needsRefresh(*cred) {
		return *cred, nil
	}
	return m.refresh(ctx, false)
}

// Refresh exchanges account credentials for a new token. Concurrent callers share a
// single exchange. On failure the previous credential stays in place.
func (m *Manager) Refresh(ctx context.Context) (Credential, error) {
	return m.refresh(ctx, true)
}

func (m *Manager) refresh(ctx context.Context, force bool) (Credential, error) {
	v, err, _ := m.group.Do(refreshKey, func() (any, error) {
		// a caller that lost the race to an exchange that already finished
		if cred := m.current.Load(); !force && cred != nil && !m.needsRefresh(*cred) {
			return cred, nil
		}

		token, lifetime, err := m.exchanger.Exchange(ctx)
		if err != nil {
			slog.Error("Credential refresh failed", "error", err)
			return nil, newAuthError(err)
		}
		if token == "" {
			return nil, &AuthError{Err: fmt.Errorf("empty access token")}
		}
		if lifetime <= 0 {
			lifetime = DefaultLifetime
		}

		now := m.clock.Now()
		cred := &Credential{
			Token:    token,
			IssuedAt: now,
			Expiry:   now.Add(lifetime),
		}
		m.current.Store(cred)
		slog.Debug("Credential refreshed", "lifetime", lifetime)
		return cred, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return *(v.(*Credential)), nil
}

func (m *Manager) needsRefresh(cred Credential) bool {
	return !m.clock.Now().Before(cred.Expiry.Add(-m.marginFor(cred)))
}

func (m *Manager) marginFor(cred Credential) time.Duration {
	if m.margin > 0 {
		return m.margin
	}
	return time.Duration(float64(cred.Lifetime()) * DefaultMarginRatio)
}
