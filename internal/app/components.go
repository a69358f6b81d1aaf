package app

import (
	"github.com/fivethreefive/legisync/internal/status"
	"github.com/fivethreefive/legisync/internal/store"
	pkgsync "github.com/fivethreefive/legisync/internal/sync"
	"github.com/fivethreefive/legisync/internal/sync/coordinator"
	"github.com/fivethreefive/legisync/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Store holds the record snapshots
	Store *store.FileStore

	// Statuses persists the outcome of every pass
	Statuses status.StatusPersistence

	// SyncManager runs single passes
	SyncManager pkgsync.Manager

	// SyncCoordinator schedules passes
	SyncCoordinator coordinator.Coordinator

	// Telemetry owns the meter and tracer providers
	Telemetry *telemetry.Telemetry
}
