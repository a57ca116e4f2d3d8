package driven

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// VerificationStore persists verification records. The backing table holds
// a unique constraint on (access_request_id, platform_id); Upsert is the
// only write path that may create rows, so concurrent initiates converge on
// one row instead of racing.
type VerificationStore interface {
	// Upsert inserts the record, or on conflict resets the existing row to
	// pending and increments its attempts counter. Returns the stored row.
	Upsert(ctx context.Context, rec *domain.VerificationRecord) (*domain.VerificationRecord, error)

	// Get retrieves a record by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.VerificationRecord, error)

	// GetByRequestPlatform retrieves the record for one
	// (access request, platform) pair. Returns domain.ErrNotFound if absent.
	GetByRequestPlatform(ctx context.Context, accessRequestID string, platform domain.PlatformID) (*domain.VerificationRecord, error)

	// ListByRequest returns all records under an access request. The
	// aggregate status is always derived from this full read.
	ListByRequest(ctx context.Context, accessRequestID string) ([]*domain.VerificationRecord, error)

	// Update persists a status transition on an existing row.
	Update(ctx context.Context, rec *domain.VerificationRecord) error
}
