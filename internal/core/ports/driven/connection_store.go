package driven

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// ConnectionStore persists agency connections and client authorizations in
// the system of record. Credentials never appear here, only secret names.
type ConnectionStore interface {
	// SaveAgencyConnection inserts a new agency connection.
	SaveAgencyConnection(ctx context.Context, conn *domain.AgencyConnection) error

	// GetAgencyConnection retrieves a connection by ID.
	// Returns domain.ErrNotFound if absent.
	GetAgencyConnection(ctx context.Context, id string) (*domain.AgencyConnection, error)

	// GetActiveAgencyConnection finds the agency's active OAuth connection
	// for a platform group. Returns domain.ErrNotFound if none.
	GetActiveAgencyConnection(ctx context.Context, agencyID string, group domain.PlatformGroup) (*domain.AgencyConnection, error)

	// UpdateAgencyConnection persists mutated fields (refresh, revoke,
	// metadata). Connections are never hard-deleted.
	UpdateAgencyConnection(ctx context.Context, conn *domain.AgencyConnection) error

	// SaveClientAuthorization inserts a client-side grant record.
	SaveClientAuthorization(ctx context.Context, auth *domain.ClientAuthorization) error

	// ListClientAuthorizations lists grants under an access request.
	ListClientAuthorizations(ctx context.Context, accessRequestID string) ([]*domain.ClientAuthorization, error)
}
