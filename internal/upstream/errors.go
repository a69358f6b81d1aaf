package upstream

import (
	"errors"
	"fmt"

	"github.com/fivethreefive/legisync/internal/record"
)

// MalformedRecordError reports a payload missing a required field. The record is
// skipped for this pass.
type MalformedRecordError struct {
	Kind  record.Kind
	ID    string
	Field string
}

func (e *MalformedRecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed %s payload: missing %s", e.Kind, e.Field)
	}
	return fmt.Sprintf("malformed %s %s: missing %s", e.Kind, e.ID, e.Field)
}

// IsMalformed reports whether err is or wraps a MalformedRecordError.
func IsMalformed(err error) bool {
	var m *MalformedRecordError
	return errors.As(err, &m)
}

// ProviderError is an error status reported inside a 200 response body.
type ProviderError struct {
	Endpoint string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error for %s: %s", e.Endpoint, e.Message)
}
