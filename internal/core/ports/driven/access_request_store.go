package driven

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// AccessRequestStore persists access requests in the system of record.
type AccessRequestStore interface {
	// Save inserts a new access request.
	Save(ctx context.Context, req *domain.AccessRequest) error

	// Get retrieves a request by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.AccessRequest, error)

	// GetByToken retrieves a request by its client-facing token.
	// Returns domain.ErrNotFound if absent.
	GetByToken(ctx context.Context, token string) (*domain.AccessRequest, error)

	// UpdateStatus persists a recomputed aggregate status.
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error
}
