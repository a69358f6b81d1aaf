package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fivethreefive/legisync/internal/clock"
	"github.com/fivethreefive/legisync/internal/status"
	pkgsync "github.com/fivethreefive/legisync/internal/sync"
	"github.com/fivethreefive/legisync/internal/telemetry"
)

// Coordinator manages background pass scheduling and execution
type Coordinator interface {
	// Start runs a pass immediately and then on every interval.
	// Blocks until context is cancelled
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator
	Stop() error

	// RunOnce runs a single pass and persists its status
	RunOnce(ctx context.Context) (*pkgsync.Result, error)
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager           pkgsync.Manager
	statusPersistence status.StatusPersistence
	config            Config
	clock             clock.Clock

	// passes never overlap
	passMu sync.Mutex

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}

	// Metrics
	syncMetrics *telemetry.SyncMetrics
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithClock sets the clock cursors are computed from
func WithClock(clk clock.Clock) Option {
	return func(c *defaultCoordinator) {
		c.clock = clk
	}
}

// New creates a new coordinator with injected dependencies
func New(manager pkgsync.Manager, statusPersistence status.StatusPersistence, cfg Config, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:           manager,
		statusPersistence: statusPersistence,
		config:            cfg,
		clock:             clock.Real{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins background pass coordination
func (c *defaultCoordinator) Start(ctx context.Context) error {
	interval := c.config.getSyncInterval()
	slog.Info("Starting background sync coordinator", "interval", interval)

	coordCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancelFunc = cancel
	c.done = done
	c.mu.Unlock()

	defer func() {
		close(done)
		slog.Info("Background sync coordinator shutting down")
	}()

	c.recoverInterrupted(coordCtx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.runScheduled(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.runScheduled(coordCtx)
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancelFunc, c.done
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		// Wait for coordinator to finish
		<-done
	}
	return nil
}

func (c *defaultCoordinator) runScheduled(ctx context.Context) {
	if _, err := c.RunOnce(ctx); err != nil {
		slog.Error("Scheduled pass failed", "error", err)
	}
}

// recoverInterrupted marks a status left in Syncing as failed
func (c *defaultCoordinator) recoverInterrupted(ctx context.Context) {
	syncStatus, err := c.statusPersistence.LoadStatus(ctx)
	if err != nil || syncStatus.Phase != status.SyncPhaseSyncing {
		return
	}
	slog.Warn("Previous pass was interrupted, marking it failed")
	syncStatus.Phase = status.SyncPhaseFailed
	syncStatus.Message = "Pass interrupted"
	if err := c.statusPersistence.SaveStatus(ctx, syncStatus); err != nil {
		slog.Warn("Failed to persist recovered status", "error", err)
	}
}

// cursorFor returns the period a pass starting at now considers
func (c *defaultCoordinator) cursorFor(syncStatus *status.SyncStatus, now time.Time) pkgsync.Cursor {
	lookback := c.config.getLookback()
	cursor := pkgsync.Cursor{Start: now.Add(-lookback), End: now}
	if c.config.RememberCursor && syncStatus.LastPeriodEnd != nil {
		if start := syncStatus.LastPeriodEnd.Add(-lookback); start.Before(cursor.Start) {
			cursor.Start = start
		}
	}
	return cursor
}

// RunOnce executes a pass and updates status
func (c *defaultCoordinator) RunOnce(ctx context.Context) (*pkgsync.Result, error) {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	syncStatus, err := c.statusPersistence.LoadStatus(ctx)
	if err != nil {
		slog.Warn("Failed to load sync status, starting fresh", "error", err)
		syncStatus = &status.SyncStatus{}
	}

	start := c.clock.Now().UTC()
	cursor := c.cursorFor(syncStatus, start)

	syncStatus.Phase = status.SyncPhaseSyncing
	syncStatus.Message = "Pass in progress"
	syncStatus.LastAttempt = &start
	syncStatus.AttemptCount++

	// Persist the "Syncing" state immediately so it's visible
	if err := c.statusPersistence.SaveStatus(ctx, syncStatus); err != nil {
		slog.Warn("Failed to persist syncing status", "error", err)
	}

	// Set a default error here in case the pass panics
	syncStatus.Phase = status.SyncPhaseFailed
	syncStatus.Message = "Unexpected failure during pass"
	defer func() {
		// the terminal status is written even when ctx was cancelled
		if err := c.statusPersistence.SaveStatus(context.WithoutCancel(ctx), syncStatus); err != nil {
			slog.Error("Error updating sync status", "error", err)
		}
	}()

	slog.Info("Starting pass", "attempt", syncStatus.AttemptCount, "start", cursor.Start, "end", cursor.End)

	result, err := c.manager.PerformPass(ctx, cursor)
	end := c.clock.Now().UTC()
	c.syncMetrics.RecordPassDuration(ctx, end.Sub(start), err == nil)

	if err != nil {
		syncStatus.Message = err.Error()
		slog.Error("Pass failed", "error", err)
		return result, err
	}

	syncStatus.Phase = status.SyncPhaseComplete
	syncStatus.LastSyncTime = &end
	syncStatus.Published = result.Published
	syncStatus.Amended = result.Amended
	syncStatus.Failed = result.Failed
	syncStatus.Message = fmt.Sprintf("Pass completed: %d published, %d amended, %d unchanged, %d failed",
		result.Published, result.Amended, result.Unchanged, result.Failed)

	// failed records stay inside the next cursor
	if result.Failed == 0 {
		syncStatus.AttemptCount = 0
		syncStatus.LastPeriodStart = &cursor.Start
		syncStatus.LastPeriodEnd = &cursor.End
	}

	slog.Info("Pass completed",
		"published", result.Published,
		"amended", result.Amended,
		"failed", result.Failed)
	return result, nil
}
