package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Exchanger trades account credentials for a bearer token.
type Exchanger interface {
	// Exchange returns the new token and its lifetime. A zero lifetime means the
	// token endpoint did not state one.
	Exchange(ctx context.Context) (token string, lifetime time.Duration, err error)
}

// PasswordGrantConfig holds the inputs of an OAuth2 password grant where the client
// id and secret travel as HTTP basic auth.
type PasswordGrantConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	Timeout      time.Duration
}

// OAuth2Exchanger performs the password grant with golang.org/x/oauth2.
type OAuth2Exchanger struct {
	cfg        *oauth2.Config
	username   string
	password   string
	httpClient *http.Client
}

// NewOAuth2Exchanger builds an exchanger from cfg.
func NewOAuth2Exchanger(cfg PasswordGrantConfig) (*OAuth2Exchanger, error) {
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("token url is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client id and secret are required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OAuth2Exchanger{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &userAgentTransport{userAgent: userAgentFor(cfg.UserAgent, cfg.Username)},
		},
	}, nil
}

// Exchange runs the password grant.
func (e *OAuth2Exchanger) Exchange(ctx context.Context) (string, time.Duration, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	tok, err := e.cfg.PasswordCredentialsToken(ctx, e.username, e.password)
	if err != nil {
		return "", 0, newAuthError(err)
	}
	if tok.AccessToken == "" {
		return "", 0, &AuthError{Err: errors.New("token response missing access_token")}
	}
	if tok.TokenType != "" && !strings.EqualFold(tok.TokenType, "bearer") {
		return "", 0, &AuthError{Err: fmt.Errorf("unexpected token type %q", tok.TokenType)}
	}

	var lifetime time.Duration
	switch {
	case tok.ExpiresIn > 0:
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		lifetime = time.Until(tok.Expiry)
	}
	return tok.AccessToken, lifetime, nil
}

func userAgentFor(agent, username string) string {
	if agent == "" {
		agent = "legisync"
	}
	return fmt.Sprintf("%s (by /u/%s)", agent, username)
}

type userAgentTransport struct {
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return http.DefaultTransport.RoundTrip(clone)
}
