package driven

import (
	"context"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// Capability is an optional connector operation. Providers differ in
// refresh semantics and token upgrades; callers check the declared set
// before invoking the corresponding method.
type Capability string

const (
	// CapRefresh means the provider issues refresh tokens. Absence means
	// "re-authorization required", not an error.
	CapRefresh Capability = "refresh"

	// CapLongLivedToken means short-lived tokens must be upgraded after
	// the code exchange (Meta-style).
	CapLongLivedToken Capability = "long_lived_token"

	// CapClientAccessCheck means the provider API can confirm whether a
	// client actually granted the agency access.
	CapClientAccessCheck Capability = "client_access_check"
)

// Capabilities is the set of optional operations a connector supports.
type Capabilities []Capability

// Has reports whether the capability is declared.
func (c Capabilities) Has(cap Capability) bool {
	for _, v := range c {
		if v == cap {
			return true
		}
	}
	return false
}

// ProviderTokens is the normalized result of a token exchange.
// Each provider's dialect is flattened into this shape by its connector.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	TokenType    string // Usually "Bearer"
	Scope        string // Space-separated scopes
}

// Credential converts normalized tokens into a vault credential blob.
func (t *ProviderTokens) Credential() *domain.Credential {
	return &domain.Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
		TokenType:    t.TokenType,
		Scope:        t.Scope,
	}
}

// ProviderUserInfo identifies the account behind an access token.
type ProviderUserInfo struct {
	ID    string // Provider-specific account ID
	Email string
	Name  string
}

// ClientAccessQuery describes the access claim to confirm against the
// provider API.
type ClientAccessQuery struct {
	Platform            domain.PlatformID
	ClientEmail         string
	RequiredAccessLevel string

	// AccountID optionally narrows the check to one client account.
	AccountID string
}

// Connector adapts one third-party platform's OAuth and verification
// dialect to a uniform interface. Connectors are stateless; credentials
// are passed per call.
type Connector interface {
	// Platforms returns the platform IDs this connector serves.
	// One connector may cover a whole credential group.
	Platforms() []domain.PlatformID

	// Capabilities returns the declared optional operations.
	Capabilities() Capabilities

	// AuthURL builds the provider authorization URL carrying the state.
	// Passing nil scopes uses the connector's defaults.
	AuthURL(state, redirectURI string, scopes []string) string

	// ExchangeCode exchanges an authorization code for tokens.
	ExchangeCode(ctx context.Context, code, redirectURI string) (*ProviderTokens, error)

	// Refresh exchanges a refresh token for fresh tokens.
	// Returns domain.ErrCapabilityNotSupported without CapRefresh.
	Refresh(ctx context.Context, refreshToken string) (*ProviderTokens, error)

	// LongLivedToken upgrades a short-lived token.
	// Returns domain.ErrCapabilityNotSupported without CapLongLivedToken.
	LongLivedToken(ctx context.Context, shortToken string) (*ProviderTokens, error)

	// VerifyToken checks whether the access token is still live.
	VerifyToken(ctx context.Context, accessToken string) (bool, error)

	// UserInfo retrieves the account behind the access token.
	UserInfo(ctx context.Context, accessToken string) (*ProviderUserInfo, error)

	// VerifyClientAccess confirms, via the provider's own API and the
	// agency's token, that the client granted the claimed access.
	// Returns domain.ErrCapabilityNotSupported without CapClientAccessCheck.
	VerifyClientAccess(ctx context.Context, agencyToken string, q ClientAccessQuery) (*domain.AccessGrant, error)
}
