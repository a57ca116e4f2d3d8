package driven

import (
	"context"
	"fmt"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// SecretStore is the credential vault. It is the only component that ever
// persists raw access or refresh tokens; the relational store only holds
// the name returned by SecretName.
type SecretStore interface {
	// Store creates a new secret. Fails with domain.ErrAlreadyExists if
	// the name is taken.
	Store(ctx context.Context, name string, cred *domain.Credential) error

	// Get retrieves a secret by name. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, name string) (*domain.Credential, error)

	// Update replaces an existing secret under the same name (token
	// refresh path). Returns domain.ErrNotFound if absent.
	Update(ctx context.Context, name string, cred *domain.Credential) error

	// Delete removes a secret (connection revocation path).
	Delete(ctx context.Context, name string) error
}

// SecretName derives the deterministic vault name for a connection's
// credential. Deterministic naming lets a secret reference be recovered
// without a side table.
func SecretName(platform domain.PlatformID, connectionID string) string {
	return fmt.Sprintf("%s_token_%s", platform, connectionID)
}
