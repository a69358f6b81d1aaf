// Package status provides pass status tracking and persistence.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fivethreefive/legisync/internal/fsutil"
)

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// StatusPersistence defines the interface for sync status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus replaces the persisted status
	SaveStatus(ctx context.Context, status *SyncStatus) error

	// LoadStatus loads the persisted status.
	// Returns an empty SyncStatus if the file doesn't exist (first run)
	LoadStatus(ctx context.Context) (*SyncStatus, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a file-based status persistence writing
// basePath/status.json
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

func (f *fileStatusPersistence) path() string {
	return filepath.Join(f.basePath, StatusFileName)
}

// SaveStatus writes the status with a durable swap
func (f *fileStatusPersistence) SaveStatus(_ context.Context, status *SyncStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data: %w", err)
	}

	if err := fsutil.WriteFileAtomic(f.path(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// LoadStatus loads the status, or an empty one on first run
func (f *fileStatusPersistence) LoadStatus(_ context.Context) (*SyncStatus, error) {
	data, err := os.ReadFile(f.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &SyncStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data: %w", err)
	}

	return &status, nil
}
