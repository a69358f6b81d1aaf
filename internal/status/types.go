package status

import "time"

// SyncPhase represents the current phase of a pass
type SyncPhase string

const (
	// SyncPhaseSyncing means a pass is in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last pass completed
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last pass aborted
	SyncPhaseFailed SyncPhase = "Failed"
)

// SyncStatus is the state of the most recent pass
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase"`

	// Message provides additional information about the status
	Message string `json:"message,omitempty"`

	// LastAttempt is the start of the last pass
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of passes since the last fully successful one
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the end of the last completed pass
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// LastPeriodStart and LastPeriodEnd bound the cursor of the last pass in which
	// every record succeeded
	LastPeriodStart *time.Time `json:"lastPeriodStart,omitempty"`
	LastPeriodEnd   *time.Time `json:"lastPeriodEnd,omitempty"`

	// Outcome counts of the last completed pass
	Published int `json:"published"`
	Amended   int `json:"amended"`
	Failed    int `json:"failed"`
}
