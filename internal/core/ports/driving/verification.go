package driving

import (
	"context"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// VerificationService owns the access-verification state machine. Initiate
// is the synchronous client-facing half; Execute runs on the worker.
type VerificationService interface {
	// Initiate upserts the verification record to pending and enqueues a
	// background job. It never blocks on the provider call.
	// Returns domain.ErrAlreadyVerified if the pair is already verified
	// (an idempotent success signal) and domain.ErrAgencyOAuthRequired if
	// the agency has no credential to verify with.
	Initiate(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)

	// Execute performs the provider access check for one job. Invoked by
	// the worker; idempotent for already-verified records. Returns an
	// error only for infrastructure failures worth a queue redelivery -
	// provider rejections are recorded on the record instead.
	Execute(ctx context.Context, job *domain.Job) error

	// Status reports the verification record for polling.
	Status(ctx context.Context, req StatusRequest) (*StatusResponse, error)
}

// VerifyRequest is a client's confirmation that a platform-native grant
// was completed.
type VerifyRequest struct {
	// Token identifies the access request.
	Token string `json:"token"`

	Platform            domain.PlatformID `json:"platform"`
	ClientEmail         string            `json:"client_email"`
	RequiredAccessLevel string            `json:"required_access_level,omitempty"`
}

// VerifyResponse acknowledges an accepted verification.
type VerifyResponse struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	EstimatedTime time.Time `json:"estimated_time"`
}

// StatusRequest identifies a record either by verification ID or by
// (access request ID, platform).
type StatusRequest struct {
	ID       string            `json:"id"`
	Platform domain.PlatformID `json:"platform,omitempty"`
}

// StatusResponse is the polling view of a verification record.
type StatusResponse struct {
	ID           string                    `json:"id"`
	Status       domain.VerificationStatus `json:"status"`
	Attempts     int                       `json:"attempts"`
	VerifiedAt   *time.Time                `json:"verified_at,omitempty"`
	Permissions  *domain.AccessGrant       `json:"permissions,omitempty"`
	ErrorMessage string                    `json:"error_message,omitempty"`
}
