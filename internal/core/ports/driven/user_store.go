package driven

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// UserStore persists agency dashboard accounts.
type UserStore interface {
	// Save creates or updates a user. Emails are unique across agencies;
	// a conflicting insert returns domain.ErrAlreadyExists.
	Save(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List retrieves all users for an agency
	List(ctx context.Context, agencyID string) ([]*domain.User, error)

	// Delete removes a user
	Delete(ctx context.Context, id string) error

	// UpdateLastLogin stamps a successful login
	UpdateLastLogin(ctx context.Context, id string) error
}
