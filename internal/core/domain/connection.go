package domain

import "time"

// ConnectionMode describes how a platform relationship was established.
type ConnectionMode string

const (
	// ModeOAuth is a full OAuth grant with stored tokens.
	ModeOAuth ConnectionMode = "oauth"

	// ModeIdentity is an identity-only link with no stored credential.
	ModeIdentity ConnectionMode = "identity"

	// ModeManualInvitation is a platform-native invite performed by hand,
	// later confirmed through access verification.
	ModeManualInvitation ConnectionMode = "manual_invitation"
)

// ConnectionStatus is the lifecycle state of a connection.
type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionRevoked ConnectionStatus = "revoked"
	ConnectionExpired ConnectionStatus = "expired"
)

// Credential holds live OAuth tokens for a connection.
// It lives only in the secret vault; the relational store keeps the
// SecretRef name that points at it.
type Credential struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	Scope        string     `json:"scope,omitempty"`
}

// IsExpired checks if the access token has expired.
func (c *Credential) IsExpired() bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*c.ExpiresAt)
}

// NeedsRefresh checks if the token should be refreshed (within 5 min of expiry).
func (c *Credential) NeedsRefresh() bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(5 * time.Minute).After(*c.ExpiresAt)
}

// AgencyConnection is an agency-held platform credential relationship.
// Rows are never hard-deleted; revocation flips Status and removes the
// vault secret.
type AgencyConnection struct {
	ID               string            `json:"id"`
	AgencyID         string            `json:"agency_id"`
	Platform         PlatformID        `json:"platform_id"`
	Group            PlatformGroup     `json:"group"`
	Mode             ConnectionMode    `json:"mode"`
	SecretRef        string            `json:"secret_ref,omitempty"`
	Status           ConnectionStatus  `json:"status"`
	ConnectedByEmail string            `json:"connected_by_email"`
	TokenType        string            `json:"token_type,omitempty"`
	Scopes           []string          `json:"scopes,omitempty"`
	ExpiresAt        *time.Time        `json:"expires_at,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// RequiresSecret reports whether the connection must carry a vault reference.
func (c *AgencyConnection) RequiresSecret() bool {
	return c.Mode == ModeOAuth
}

// Usable reports whether the connection can back an access verification.
func (c *AgencyConnection) Usable() bool {
	return c.Status == ConnectionActive && c.Mode == ModeOAuth && c.SecretRef != ""
}

// ClientAuthorization is a client-side grant record under an access request.
// Identity and manual-invitation modes carry no secret.
type ClientAuthorization struct {
	ID              string            `json:"id"`
	AccessRequestID string            `json:"access_request_id"`
	ClientEmail     string            `json:"client_email"`
	Platform        PlatformID        `json:"platform_id"`
	Mode            ConnectionMode    `json:"mode"`
	Status          ConnectionStatus  `json:"status"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
