package credential

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// AuthError reports a failed or malformed credential exchange. It is fatal for the
// current sync pass.
type AuthError struct {
	// StatusCode is the HTTP status of the token endpoint, zero when the request never
	// produced a response.
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("credential exchange failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("credential exchange failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is or wraps an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// newAuthError classifies an exchange failure, pulling the status code out of oauth2
// retrieve errors.
func newAuthError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &AuthError{StatusCode: retrieveErr.Response.StatusCode, Err: err}
	}
	return &AuthError{Err: err}
}
