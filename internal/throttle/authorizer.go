package throttle

import (
	"context"
	"net/http"

	"github.com/fivethreefive/legisync/internal/credential"
)

// Authorizer decorates outgoing requests with credentials.
type Authorizer interface {
	// Authorize sets authentication headers on req.
	Authorize(ctx context.Context, req *http.Request) error
	// Refresh renews the credentials after the target rejected them.
	Refresh(ctx context.Context) error
}

// CredentialSource is the part of credential.Manager used for bearer auth.
type CredentialSource interface {
	Current(ctx context.Context) (credential.Credential, error)
	Refresh(ctx context.Context) (credential.Credential, error)
}

// BearerAuthorizer injects the current OAuth bearer token.
type BearerAuthorizer struct {
	Credentials CredentialSource
}

// Authorize sets the Authorization header, refreshing the token first if it is close
// to expiry.
func (a *BearerAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	cred, err := a.Credentials.Current(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "bearer "+cred.Token)
	return nil
}

// Refresh forces a new token exchange.
func (a *BearerAuthorizer) Refresh(ctx context.Context) error {
	_, err := a.Credentials.Refresh(ctx)
	return err
}

// APIKeyAuthorizer sets a static API key header.
type APIKeyAuthorizer struct {
	Header string
	Key    string
}

// Authorize sets the key header. Header defaults to X-API-Key.
func (a *APIKeyAuthorizer) Authorize(_ context.Context, req *http.Request) error {
	header := a.Header
	if header == "" {
		header = "X-API-Key"
	}
	req.Header.Set(header, a.Key)
	return nil
}

// Refresh always fails; a static key cannot be renewed.
func (*APIKeyAuthorizer) Refresh(context.Context) error {
	return ErrRefreshUnsupported
}
