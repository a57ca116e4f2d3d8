package driven

import (
	"context"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// StateToken is a pending OAuth flow state as persisted in the fast
// key-value layer. The Signature covers the token and the serialized
// payload, so a store-level write cannot forge trusted flow context.
type StateToken struct {
	// Token is the cryptographically random single-use identifier.
	Token string `json:"token"`

	// Payload is the flow context, trusted only after signature check.
	Payload domain.StatePayload `json:"payload"`

	// Signature is the hex HMAC-SHA256 over token and payload.
	Signature string `json:"signature"`

	// ExpiresAt is when the store may evict the entry. The service also
	// checks payload age explicitly; the two limits are independent.
	ExpiresAt time.Time `json:"expires_at"`
}

// StateTokenStore manages OAuth flow state for CSRF protection.
// Entries are single-use and expire after a short period.
type StateTokenStore interface {
	// Save stores a new state token entry.
	Save(ctx context.Context, state *StateToken) error

	// GetAndDelete atomically retrieves and deletes the entry.
	// This ensures single-use semantics.
	// Returns nil, nil if the entry doesn't exist or has expired -
	// callers treat both identically as "expired or already used".
	GetAndDelete(ctx context.Context, token string) (*StateToken, error)

	// Cleanup removes expired entries. Backends with native TTL may
	// implement this as a no-op.
	Cleanup(ctx context.Context) error
}
