package session

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Provider names a third-party identity endpoint on the backend
// (POST /users/<provider>/).
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderGoogleCode Provider = "google-code"
	ProviderFacebook   Provider = "facebook"
)

// AssertionPayload carries a provider-issued bearer token. The token is
// forwarded opaquely; verification is the backend's job.
type AssertionPayload struct {
	AccessToken string `json:"access_token"`
}

// AuthCodePayload carries a PKCE authorization-code exchange for
// ProviderGoogleCode. The backend holds the client secret and performs the
// exchange itself.
type AuthCodePayload struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
	RedirectURI  string `json:"redirectUri"`
}

// PayloadFromToken adapts a token obtained through an x/oauth2 provider
// handshake into the assertion payload the backend expects.
func PayloadFromToken(token *oauth2.Token) AssertionPayload {
	if token == nil {
		return AssertionPayload{}
	}
	return AssertionPayload{AccessToken: token.AccessToken}
}

// FederatedLogin exchanges a third-party assertion for the service's own
// credential pair, then proceeds exactly like Login's post-token steps. A
// plain string payload is wrapped as an AssertionPayload; anything else is
// sent as-is.
func (m *Manager) FederatedLogin(ctx context.Context, provider Provider, payload any) error {
	if provider == "" {
		return errors.New("[Manager.FederatedLogin] provider is required")
	}
	if raw, ok := payload.(string); ok {
		payload = AssertionPayload{AccessToken: raw}
	}

	var pair tokenPair
	path := fmt.Sprintf("/users/%s/", provider)
	if err := m.client.Post(ctx, path, payload, &pair); err != nil {
		return errors.Wrapf(err, "[Manager.FederatedLogin] %s exchange", provider)
	}
	return m.establish(ctx, pair)
}
