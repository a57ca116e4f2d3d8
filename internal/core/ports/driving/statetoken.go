package driving

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// StateTokenService issues and validates signed, single-use, time-boxed
// CSRF tokens carrying OAuth flow context.
type StateTokenService interface {
	// Create issues a token for the payload. If CreatedAtMillis is zero it
	// is stamped with the current time.
	Create(ctx context.Context, payload domain.StatePayload) (string, error)

	// Validate consumes the token and returns its payload. The token is
	// deleted on first successful read; a second call fails with
	// domain.ErrInvalidStateToken.
	Validate(ctx context.Context, token string) (*domain.StatePayload, error)
}
