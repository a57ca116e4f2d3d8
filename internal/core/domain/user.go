package domain

import "time"

// Role defines what an agency dashboard user may do.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether the role is one the dashboard knows.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is an agency dashboard account. Clients never get one: they interact
// through access-request tokens only.
type User struct {
	ID           string     `json:"id"`
	AgencyID     string     `json:"agency_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// IsAdmin reports whether the user may manage connections and users.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// TokenClaims is the decoded content of an API auth token.
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	AgencyID  string `json:"agency_id"`
	SessionID string `json:"session_id"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}
