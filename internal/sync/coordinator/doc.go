// Package coordinator schedules sync passes and persists their status.
//
// It sits on top of sync.Manager and handles:
//
//   - the cursor of each pass, from the lookback and the last successful period
//   - an initial pass on startup, then one per interval using time.Ticker
//   - status persistence, with the terminal status always written
//   - graceful shutdown
//
// # Usage Example
//
//	coord := coordinator.New(manager, status.NewFileStatusPersistence(dataDir), coordinator.Config{
//	    Interval: 30 * time.Minute,
//	    Lookback: 24 * time.Hour,
//	})
//	go func() { _ = coord.Start(ctx) }()
//	defer coord.Stop()
package coordinator
