package publish

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoReference means the target accepted a submission but returned no post
// identifier. The publish is not confirmed.
var ErrNoReference = errors.New("submission returned no post reference")

// APIError carries the errors listed in a 200 response body.
type APIError struct {
	Endpoint string
	Errors   []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Endpoint, strings.Join(e.Errors, "; "))
}
