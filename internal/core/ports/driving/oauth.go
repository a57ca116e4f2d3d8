package driving

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// OAuthFlowService drives the agency-side OAuth round trip: state issuance,
// redirect to the provider, callback validation, token exchange, vault
// storage, and connection recording.
type OAuthFlowService interface {
	// Initiate starts an OAuth authorization flow.
	// Returns an authorization URL to redirect the user to.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)

	// Callback handles the provider redirect. It consumes the state token,
	// exchanges the code, stores the credential in the vault and records
	// the agency connection.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResponse, error)

	// Revoke marks a connection revoked and deletes its vault secret.
	// The connection row is kept for audit.
	Revoke(ctx context.Context, connectionID string) error
}

// InitiateRequest represents a request to start an OAuth flow.
type InitiateRequest struct {
	Platform    domain.PlatformID `json:"platform"`
	AgencyID    string            `json:"agency_id"`
	UserEmail   string            `json:"user_email"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

// InitiateResponse contains the authorization URL and state.
type InitiateResponse struct {
	// AuthorizationURL is the URL to redirect the user to for authorization.
	AuthorizationURL string `json:"auth_url"`

	// State is the CSRF token that will be returned in the callback.
	State string `json:"state"`

	// ExpiresAt is when the state expires (10 minutes).
	ExpiresAt string `json:"expires_at"`
}

// CallbackRequest represents the OAuth callback from the provider.
type CallbackRequest struct {
	// Platform is the platform from the callback route.
	Platform domain.PlatformID `json:"platform"`

	// Code is the authorization code from the provider.
	Code string `json:"code"`

	// State is the CSRF token returned by the provider.
	State string `json:"state"`

	// Error is set if the provider returned an error.
	Error string `json:"error,omitempty"`

	// ErrorDescription provides details about the error.
	ErrorDescription string `json:"error_description,omitempty"`
}

// CallbackResponse contains the result of the OAuth callback.
type CallbackResponse struct {
	// ConnectionID is the recorded agency connection.
	ConnectionID string `json:"connection_id"`

	// RedirectURL is where the browser should be sent, if the flow
	// carried one.
	RedirectURL string `json:"redirect_url,omitempty"`

	// Message provides a human-readable status message.
	Message string `json:"message"`
}

// OAuthError is a flow error with a stable wire code.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`

	// RedirectURL is set when the flow state carried a browser redirect
	// target, so the error can be delivered there instead of as JSON.
	RedirectURL string `json:"-"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Common OAuth flow errors. State-token failures are all terminal: the
// caller must restart the flow.
var (
	ErrOAuthInvalidState    = &OAuthError{Code: "invalid_state", Description: "The state parameter is invalid, already used, or expired"}
	ErrOAuthBadSignature    = &OAuthError{Code: "invalid_signature", Description: "The state payload failed signature verification"}
	ErrOAuthStateExpired    = &OAuthError{Code: "state_expired", Description: "The state token exceeded its maximum age"}
	ErrOAuthMalformedState  = &OAuthError{Code: "malformed_state", Description: "The state payload is missing required flow fields"}
	ErrOAuthUnknownPlatform = &OAuthError{Code: "unknown_platform", Description: "No connector is registered for this platform"}
	ErrOAuthExchangeFailed  = &OAuthError{Code: "exchange_failed", Description: "Failed to exchange authorization code for tokens"}
	ErrOAuthUserInfoFailed  = &OAuthError{Code: "user_info_failed", Description: "Failed to fetch user information"}
)
