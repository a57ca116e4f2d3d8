package domain

import (
	"time"
)

// FlowKind distinguishes the two OAuth flow initiators.
type FlowKind string

const (
	// FlowAgency is an agency connecting its own platform account.
	FlowAgency FlowKind = "agency"

	// FlowClient is a client authorizing an agency's access request.
	FlowClient FlowKind = "client"
)

// StatePayload is the flow context bound to a state token.
// It is trusted only after the token's signature has been verified.
type StatePayload struct {
	FlowKind FlowKind   `json:"flow_kind"`
	Platform PlatformID `json:"platform_id"`

	// SubjectEmail is the agency user who started the flow (agency flow).
	SubjectEmail string `json:"subject_email,omitempty"`

	// AgencyID is the agency the resulting connection belongs to.
	AgencyID string `json:"agency_id,omitempty"`

	// AccessRequestID and ClientEmail identify the client flow.
	AccessRequestID string `json:"access_request_id,omitempty"`
	ClientEmail     string `json:"client_email,omitempty"`

	// RedirectURL is where the browser is sent after the callback.
	RedirectURL string `json:"redirect_url,omitempty"`

	CreatedAtMillis int64             `json:"created_at_millis"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// ValidateForFlow checks that the fields required by the declared flow kind
// are present. Called only after signature verification.
func (p *StatePayload) ValidateForFlow() error {
	switch p.FlowKind {
	case FlowAgency:
		if p.Platform == "" || p.SubjectEmail == "" {
			return ErrMalformedStatePayload
		}
	case FlowClient:
		if p.AccessRequestID == "" || p.ClientEmail == "" {
			return ErrMalformedStatePayload
		}
	default:
		return ErrMalformedStatePayload
	}
	return nil
}

// Age returns how long ago the payload was issued.
func (p *StatePayload) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(p.CreatedAtMillis))
}
