// Package app wires legisync's components together and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fivethreefive/legisync/internal/config"
	pkgsync "github.com/fivethreefive/legisync/internal/sync"
)

// LegisyncApp encapsulates the sync coordinator and the optional ops server
type LegisyncApp struct {
	config     *config.Config
	components *AppComponents

	// httpServer is nil when no ops address is configured
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start runs the coordinator loop and, when configured, the ops server. It blocks
// until the server stops or, without a server, until the coordinator stops.
func (app *LegisyncApp) Start() error {
	if app.httpServer == nil {
		slog.Info("Ops server disabled, running sync loop only")
		if err := app.components.SyncCoordinator.Start(app.ctx); err != nil {
			return fmt.Errorf("sync coordinator failed: %w", err)
		}
		return nil
	}

	go func() {
		if err := app.components.SyncCoordinator.Start(app.ctx); err != nil {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// RunOnce runs a single pass through the coordinator so its status is persisted.
func (app *LegisyncApp) RunOnce(ctx context.Context) (*pkgsync.Result, error) {
	return app.components.SyncCoordinator.RunOnce(ctx)
}

// Stop stops the coordinator, shuts down the ops server within timeout and
// flushes telemetry.
func (app *LegisyncApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down...")

	if err := app.components.SyncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if app.httpServer != nil {
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
	}
	if app.components.Telemetry != nil {
		if err := app.components.Telemetry.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		slog.Info("Shutdown complete")
	}
	return errors.Join(errs...)
}

// GetConfig returns the application configuration
func (app *LegisyncApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the ops server, nil when disabled
func (app *LegisyncApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired components
func (app *LegisyncApp) Components() *AppComponents {
	return app.components
}
