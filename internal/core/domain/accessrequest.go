package domain

import "time"

// AccessRequest is an agency's request for access to a client's platform
// accounts. Its Status is derived from the verification records beneath it
// and recomputed on every record transition.
type AccessRequest struct {
	ID          string `json:"id"`
	AgencyID    string `json:"agency_id"`
	ClientEmail string `json:"client_email"`

	// Token is the opaque value the client presents when confirming a
	// platform-native grant.
	Token string `json:"token"`

	Platforms []PlatformID  `json:"platforms"`
	Status    RequestStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPlatform reports whether the request covers the given platform.
func (a *AccessRequest) HasPlatform(p PlatformID) bool {
	for _, rp := range a.Platforms {
		if rp == p {
			return true
		}
	}
	return false
}
