package driving

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// AuthService authenticates agency dashboard users and manages their
// accounts. Clients are out of scope: they hold access-request tokens,
// not accounts.
type AuthService interface {
	// Login validates credentials and issues an API token.
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)

	// CreateUser provisions a dashboard account with a hashed password.
	CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error)
}

// LoginRequest carries dashboard credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and its subject.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// CreateUserRequest provisions a new dashboard user.
type CreateUserRequest struct {
	AgencyID string      `json:"agency_id"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}
