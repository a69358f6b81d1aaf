// Package store persists record snapshots, one JSON file per record.
//
// Layout under the data directory:
//
//	bills/bill-<id>.json
//	votes/vote-<chamber>-<congress>-<session>-<rollcall>.json
//
// Writes are durable swaps, so a reader sees either the previous snapshot or the new
// one. Writes to one record are serialized; writes to different records are not.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fivethreefive/legisync/internal/fsutil"
	"github.com/fivethreefive/legisync/internal/record"
)

// SchemaVersion is the envelope version written by this package.
const SchemaVersion = 1

const fileMode = 0o600

// envelope is the on-disk form of a snapshot.
type envelope struct {
	Kind          record.Kind  `json:"kind"`
	SchemaVersion int          `json:"schemaVersion"`
	SavedAt       time.Time    `json:"savedAt"`
	Bill          *record.Bill `json:"bill,omitempty"`
	Vote          *record.Vote `json:"vote,omitempty"`
}

// FileStore is the file-backed record store. Safe for concurrent use.
type FileStore struct {
	root    string
	mutexes *keyedMutex
	now     func() time.Time
}

// NewFileStore creates the store rooted at dir, creating its directories.
func NewFileStore(dir string) (*FileStore, error) {
	for _, kind := range []record.Kind{record.KindBill, record.KindVote} {
		if err := os.MkdirAll(filepath.Join(dir, kindDir(kind)), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", kind, err)
		}
	}
	return &FileStore{
		root:    dir,
		mutexes: newKeyedMutex(),
		now:     time.Now,
	}, nil
}

func kindDir(kind record.Kind) string {
	return string(kind) + "s"
}

// Path returns the snapshot file of key.
func (s *FileStore) Path(key record.Key) string {
	return filepath.Join(s.root, kindDir(key.Kind), string(key.Kind)+"-"+key.ID+".json")
}

// Load returns the stored snapshot of key, or an error wrapping ErrNotFound.
func (s *FileStore) Load(_ context.Context, key record.Key) (record.Record, error) {
	if err := key.Validate(); err != nil {
		return nil, &PersistenceError{Op: "load", Key: key, Err: err}
	}
	return s.read(key)
}

func (s *FileStore) read(key record.Key) (record.Record, error) {
	// #nosec G304 -- the path is built from a validated key
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, &PersistenceError{Op: "load", Key: key, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &PersistenceError{Op: "load", Key: key, Err: fmt.Errorf("decode snapshot: %w", err)}
	}
	if env.SchemaVersion > SchemaVersion {
		return nil, &PersistenceError{Op: "load", Key: key,
			Err: fmt.Errorf("snapshot schema version %d is newer than supported %d", env.SchemaVersion, SchemaVersion)}
	}

	var rec record.Record
	switch {
	case env.Kind == record.KindBill && env.Bill != nil:
		rec = env.Bill
	case env.Kind == record.KindVote && env.Vote != nil:
		rec = env.Vote
	default:
		return nil, &PersistenceError{Op: "load", Key: key, Err: fmt.Errorf("snapshot has no %s payload", env.Kind)}
	}
	if rec.Key() != key {
		return nil, &PersistenceError{Op: "load", Key: key, Err: fmt.Errorf("snapshot holds %s", rec.Key())}
	}
	return rec, nil
}

// LoadBill loads a bill snapshot.
func (s *FileStore) LoadBill(ctx context.Context, id string) (*record.Bill, error) {
	rec, err := s.Load(ctx, record.Key{Kind: record.KindBill, ID: id})
	if err != nil {
		return nil, err
	}
	return rec.(*record.Bill), nil
}

// LoadVote loads a vote snapshot.
func (s *FileStore) LoadVote(ctx context.Context, id string) (*record.Vote, error) {
	rec, err := s.Load(ctx, record.Key{Kind: record.KindVote, ID: id})
	if err != nil {
		return nil, err
	}
	return rec.(*record.Vote), nil
}

// Exists reports whether a snapshot of key is stored.
func (s *FileStore) Exists(_ context.Context, key record.Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, &PersistenceError{Op: "stat", Key: key, Err: err}
	}
	_, err := os.Stat(s.Path(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, &PersistenceError{Op: "stat", Key: key, Err: err}
	}
}

// Save durably replaces the snapshot of rec. On error the previous snapshot is intact.
func (s *FileStore) Save(ctx context.Context, rec record.Record) error {
	key := rec.Key()
	if err := key.Validate(); err != nil {
		return &PersistenceError{Op: "save", Key: key, Err: err}
	}

	unlock, err := s.lockFile(ctx, s.Path(key))
	if err != nil {
		return &PersistenceError{Op: "save", Key: key, Err: err}
	}
	defer unlock()

	return s.write(rec)
}

func (s *FileStore) write(rec record.Record) error {
	key := rec.Key()
	env := envelope{Kind: key.Kind, SchemaVersion: SchemaVersion, SavedAt: s.now().UTC()}
	switch r := rec.(type) {
	case *record.Bill:
		env.Bill = r
	case *record.Vote:
		env.Vote = r
	default:
		return &PersistenceError{Op: "save", Key: key, Err: fmt.Errorf("unsupported record type %T", rec)}
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Key: key, Err: fmt.Errorf("encode snapshot: %w", err)}
	}
	if err := fsutil.WriteFileAtomic(s.Path(key), data, fileMode); err != nil {
		return &PersistenceError{Op: "save", Key: key, Err: err}
	}
	slog.Debug("Snapshot saved", "key", key.String())
	return nil
}

// Update loads the snapshot of key, applies fn and saves the result, holding the
// record's lock throughout.
func (s *FileStore) Update(ctx context.Context, key record.Key, fn func(record.Record) error) error {
	if err := key.Validate(); err != nil {
		return &PersistenceError{Op: "update", Key: key, Err: err}
	}

	unlock, err := s.lockFile(ctx, s.Path(key))
	if err != nil {
		return &PersistenceError{Op: "update", Key: key, Err: err}
	}
	defer unlock()

	rec, err := s.read(key)
	if err != nil {
		return err
	}
	if err := fn(rec); err != nil {
		return err
	}
	return s.write(rec)
}

// ResolveVotes loads the votes a bill references. References without a snapshot are
// skipped.
func (s *FileStore) ResolveVotes(ctx context.Context, bill *record.Bill) ([]*record.Vote, error) {
	votes := make([]*record.Vote, 0, len(bill.Votes))
	for _, ref := range bill.Votes {
		vote, err := s.LoadVote(ctx, ref.ID)
		if err != nil {
			if IsNotFound(err) {
				slog.Debug("Referenced vote has no snapshot", "bill", bill.ID, "vote", ref.ID)
				continue
			}
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

// List returns the keys of all stored snapshots of kind, sorted by id.
func (s *FileStore) List(_ context.Context, kind record.Kind) ([]record.Key, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, kindDir(kind)))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s snapshots: %w", kind, err)
	}

	prefix := string(kind) + "-"
	var keys []record.Key
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || fsutil.IsTempFile(name) || !strings.HasSuffix(name, ".json") || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := record.Key{Kind: kind, ID: strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")}
		if key.Validate() != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys, nil
}
