package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// DefaultTokenTTL is how long a dashboard session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// AuthServiceConfig holds configuration for the auth service.
type AuthServiceConfig struct {
	Users driven.UserStore
	Auth  driven.AuthAdapter

	// TokenTTL overrides DefaultTokenTTL when positive.
	TokenTTL time.Duration

	Logger *slog.Logger
}

type authService struct {
	users    driven.UserStore
	auth     driven.AuthAdapter
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(cfg AuthServiceConfig) driving.AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		users:    cfg.Users,
		auth:     cfg.Auth,
		tokenTTL: ttl,
		logger:   logger,
	}
}

// Login validates credentials and issues an API token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, req driving.LoginRequest) (*driving.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrUnauthorized
	}
	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.auth.GenerateToken(&domain.TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		AgencyID:  user.AgencyID,
		SessionID: domain.GenerateID(),
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	// Best effort: a failed stamp must not fail the login.
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("update last login failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "agency_id", user.AgencyID)

	return &driving.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      user,
	}, nil
}

// CreateUser provisions a dashboard account with a hashed password.
func (s *authService) CreateUser(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if req.AgencyID == "" || req.Email == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           domain.GenerateID(),
		AgencyID:     req.AgencyID,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID, "agency_id", user.AgencyID, "role", user.Role)
	return user, nil
}
