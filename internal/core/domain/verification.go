package domain

import "time"

// VerificationStatus is the state of one per-platform access verification.
// Transitions: pending -> verifying -> verified | failed. A failed record
// re-enters pending only through a fresh client-initiated retry.
type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationVerifying VerificationStatus = "verifying"
	VerificationVerified  VerificationStatus = "verified"
	VerificationFailed    VerificationStatus = "failed"
)

// AccessAsset is a platform asset the agency was found to have access to.
type AccessAsset struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// AccessGrant is the normalized outcome of a provider-side access check.
type AccessGrant struct {
	HasAccess   bool          `json:"has_access"`
	AccessLevel string        `json:"access_level,omitempty"`
	Assets      []AccessAsset `json:"assets,omitempty"`
}

// VerificationRecord tracks whether a client's manually granted platform
// access has been confirmed via a live provider API call.
// Uniquely keyed by (AccessRequestID, Platform): re-initiating updates the
// existing row instead of creating a duplicate.
type VerificationRecord struct {
	ID              string     `json:"id"`
	AccessRequestID string     `json:"access_request_id"`
	Platform        PlatformID `json:"platform_id"`

	// AgencyConnectionID is the agency credential used to perform the check.
	AgencyConnectionID string `json:"agency_connection_id"`

	ClientEmail         string `json:"client_email"`
	RequiredAccessLevel string `json:"required_access_level,omitempty"`

	Status        VerificationStatus `json:"status"`
	Attempts      int                `json:"attempts"`
	LastAttemptAt time.Time          `json:"last_attempt_at"`

	// VerifiedAt is set exactly once, on the first transition to verified.
	VerifiedAt          *time.Time   `json:"verified_at,omitempty"`
	VerifiedPermissions *AccessGrant `json:"verified_permissions,omitempty"`
	ErrorMessage        string       `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarkVerifying moves the record into the in-flight state.
func (r *VerificationRecord) MarkVerifying() {
	now := time.Now()
	r.Status = VerificationVerifying
	r.LastAttemptAt = now
	r.UpdatedAt = now
}

// MarkVerified records a successful check. VerifiedAt is preserved if it was
// already set by an earlier transition.
func (r *VerificationRecord) MarkVerified(grant *AccessGrant) {
	now := time.Now()
	r.Status = VerificationVerified
	if r.VerifiedAt == nil {
		r.VerifiedAt = &now
	}
	r.VerifiedPermissions = grant
	r.ErrorMessage = ""
	r.UpdatedAt = now
}

// MarkFailed records a terminal failure for this attempt. The record is only
// retried by an explicit client re-initiate.
func (r *VerificationRecord) MarkFailed(msg string) {
	r.Status = VerificationFailed
	r.ErrorMessage = msg
	r.UpdatedAt = time.Now()
}

// RequestStatus is the derived completion state of an access request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestPartial   RequestStatus = "partial"
	RequestCompleted RequestStatus = "completed"
)

// AggregateStatus derives the request-level status from all of its
// verification records. It must be computed from a consistent read of every
// record for the request, never from an incrementally maintained counter.
func AggregateStatus(records []*VerificationRecord) RequestStatus {
	if len(records) == 0 {
		return RequestPending
	}
	verified := 0
	for _, r := range records {
		if r.Status == VerificationVerified {
			verified++
		}
	}
	switch {
	case verified == len(records):
		return RequestCompleted
	case verified > 0:
		return RequestPartial
	default:
		return RequestPending
	}
}
