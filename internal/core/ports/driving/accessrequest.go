package driving

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// AccessRequestService manages access requests and their derived status.
type AccessRequestService interface {
	// Create records a new access request and returns it with its
	// client-facing token.
	Create(ctx context.Context, req CreateAccessRequest) (*domain.AccessRequest, error)

	// Get returns a request with its per-platform verification records.
	Get(ctx context.Context, id string) (*AccessRequestView, error)
}

// CreateAccessRequest is the input for a new access request.
type CreateAccessRequest struct {
	AgencyID    string              `json:"agency_id"`
	ClientEmail string              `json:"client_email"`
	Platforms   []domain.PlatformID `json:"platforms"`
}

// AccessRequestView is a request together with its verification records and
// the client-side grants declared under it.
type AccessRequestView struct {
	Request        *domain.AccessRequest         `json:"request"`
	Verifications  []*domain.VerificationRecord  `json:"verifications"`
	Authorizations []*domain.ClientAuthorization `json:"authorizations,omitempty"`
}
