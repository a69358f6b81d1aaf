package coordinator

import (
	"log/slog"
	"time"
)

const (
	// DefaultInterval is the time between passes
	DefaultInterval = 30 * time.Minute
	// DefaultLookback is how far back a pass looks for roll calls
	DefaultLookback = 24 * time.Hour
)

// Config controls scheduling.
type Config struct {
	Interval time.Duration
	Lookback time.Duration
	// RememberCursor starts a pass at the end of the last successful period, less
	// the lookback, so downtime longer than the lookback is caught up.
	RememberCursor bool
}

// getSyncInterval returns the configured interval or the default
func (c Config) getSyncInterval() time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	if c.Interval < 0 {
		slog.Warn("Invalid sync interval, using default", "interval", c.Interval, "default", DefaultInterval)
	}
	return DefaultInterval
}

func (c Config) getLookback() time.Duration {
	if c.Lookback > 0 {
		return c.Lookback
	}
	return DefaultLookback
}
