package store

import (
	"errors"
	"fmt"

	"github.com/fivethreefive/legisync/internal/record"
)

// ErrNotFound means no snapshot exists for a key. It is the first-sighting signal, not
// a fault.
var ErrNotFound = errors.New("record not found")

// PersistenceError reports a failed read or write of a snapshot.
type PersistenceError struct {
	Op  string
	Key record.Key
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the snapshot does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
