package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authhub-labs/authhub-core/internal/adapters/driven/connectors"
	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driving"
)

// Ensure oauthFlowService implements OAuthFlowService
var _ driving.OAuthFlowService = (*oauthFlowService)(nil)

// OAuthFlowServiceConfig holds configuration for the OAuth flow service.
type OAuthFlowServiceConfig struct {
	// StateTokens issues and validates flow state.
	StateTokens driving.StateTokenService

	// Registry resolves platform connectors.
	Registry *connectors.Registry

	// Secrets is the credential vault.
	Secrets driven.SecretStore

	// Connections is the system-of-record connection store.
	Connections driven.ConnectionStore

	// BaseURL is the application base URL for OAuth callbacks.
	// Example: "https://app.authhub.io" or "http://localhost:8080"
	BaseURL string

	Logger *slog.Logger
}

type oauthFlowService struct {
	stateTokens driving.StateTokenService
	registry    *connectors.Registry
	secrets     driven.SecretStore
	connections driven.ConnectionStore
	baseURL     string
	logger      *slog.Logger
}

// NewOAuthFlowService creates a new OAuth flow service.
func NewOAuthFlowService(cfg OAuthFlowServiceConfig) driving.OAuthFlowService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &oauthFlowService{
		stateTokens: cfg.StateTokens,
		registry:    cfg.Registry,
		secrets:     cfg.Secrets,
		connections: cfg.Connections,
		baseURL:     cfg.BaseURL,
		logger:      logger,
	}
}

// Initiate starts an agency OAuth flow: issues a state token and returns
// the provider authorization URL.
func (s *oauthFlowService) Initiate(ctx context.Context, req driving.InitiateRequest) (*driving.InitiateResponse, error) {
	connector, err := s.registry.Get(req.Platform)
	if err != nil {
		return nil, driving.ErrOAuthUnknownPlatform
	}

	payload := domain.StatePayload{
		FlowKind:     domain.FlowAgency,
		Platform:     req.Platform,
		SubjectEmail: req.UserEmail,
		AgencyID:     req.AgencyID,
		RedirectURL:  req.RedirectURL,
	}

	state, err := s.stateTokens.Create(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create state: %w", err)
	}

	redirectURI := s.callbackURI(req.Platform)
	authURL := connector.AuthURL(state, redirectURI, nil)

	return &driving.InitiateResponse{
		AuthorizationURL: authURL,
		State:            state,
		ExpiresAt:        time.Now().Add(DefaultStateTokenTTL).Format(time.RFC3339),
	}, nil
}

// Callback completes the round trip: consumes the state, exchanges the
// code, upgrades short-lived tokens where the provider requires it, stores
// the credential in the vault and records the connection.
func (s *oauthFlowService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if req.Error != "" {
		return nil, &driving.OAuthError{Code: req.Error, Description: req.ErrorDescription}
	}

	payload, err := s.stateTokens.Validate(ctx, req.State)
	if err != nil {
		return nil, stateError(err)
	}

	// The callback route's platform must match the flow the state was
	// issued for.
	if req.Platform != "" && req.Platform != payload.Platform {
		return nil, driving.ErrOAuthInvalidState
	}

	connector, err := s.registry.Get(payload.Platform)
	if err != nil {
		return nil, driving.ErrOAuthUnknownPlatform
	}

	// Past state validation the redirect target is trusted, so flow errors
	// can be delivered to the browser.
	flowErr := func(code, description string) *driving.OAuthError {
		return &driving.OAuthError{Code: code, Description: description, RedirectURL: payload.RedirectURL}
	}

	tokens, err := connector.ExchangeCode(ctx, req.Code, s.callbackURI(payload.Platform))
	if err != nil {
		return nil, flowErr(driving.ErrOAuthExchangeFailed.Code, err.Error())
	}

	// Providers like Meta hand back short-lived tokens that must be
	// upgraded before they are worth storing.
	if connector.Capabilities().Has(driven.CapLongLivedToken) {
		upgraded, err := connector.LongLivedToken(ctx, tokens.AccessToken)
		if err != nil {
			return nil, flowErr(driving.ErrOAuthExchangeFailed.Code, err.Error())
		}
		tokens = upgraded
	}

	userInfo, err := connector.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, flowErr(driving.ErrOAuthUserInfoFailed.Code, err.Error())
	}

	conn, err := s.upsertConnection(ctx, payload, tokens, userInfo)
	if err != nil {
		return nil, err
	}

	s.logger.Info("oauth connection recorded",
		"platform", payload.Platform,
		"agency_id", payload.AgencyID,
		"connection_id", conn.ID,
	)

	return &driving.CallbackResponse{
		ConnectionID: conn.ID,
		RedirectURL:  payload.RedirectURL,
		Message:      fmt.Sprintf("Successfully connected %s as %s", payload.Platform.DisplayName(), accountDisplay(userInfo)),
	}, nil
}

// Revoke flips the connection to revoked and removes its vault secret.
func (s *oauthFlowService) Revoke(ctx context.Context, connectionID string) error {
	conn, err := s.connections.GetAgencyConnection(ctx, connectionID)
	if err != nil {
		return err
	}

	if conn.SecretRef != "" {
		if err := s.secrets.Delete(ctx, conn.SecretRef); err != nil {
			return fmt.Errorf("delete secret: %w", err)
		}
	}

	conn.Status = domain.ConnectionRevoked
	conn.SecretRef = ""
	conn.UpdatedAt = time.Now()
	if err := s.connections.UpdateAgencyConnection(ctx, conn); err != nil {
		return fmt.Errorf("update connection: %w", err)
	}

	s.logger.Info("connection revoked", "connection_id", connectionID)
	return nil
}

// upsertConnection refreshes an existing active connection for the group
// (same secret name, new blob) or creates a fresh one.
func (s *oauthFlowService) upsertConnection(ctx context.Context, payload *domain.StatePayload, tokens *driven.ProviderTokens, userInfo *driven.ProviderUserInfo) (*domain.AgencyConnection, error) {
	now := time.Now()
	group := payload.Platform.Group()

	existing, err := s.connections.GetActiveAgencyConnection(ctx, payload.AgencyID, group)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up connection: %w", err)
	}

	if existing != nil {
		if err := s.secrets.Update(ctx, existing.SecretRef, tokens.Credential()); err != nil {
			return nil, fmt.Errorf("update secret: %w", err)
		}
		existing.ConnectedByEmail = payload.SubjectEmail
		existing.TokenType = tokens.TokenType
		existing.ExpiresAt = tokens.ExpiresAt
		existing.UpdatedAt = now
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]string)
		}
		existing.Metadata["account_id"] = userInfo.ID
		if err := s.connections.UpdateAgencyConnection(ctx, existing); err != nil {
			return nil, fmt.Errorf("update connection: %w", err)
		}
		return existing, nil
	}

	conn := &domain.AgencyConnection{
		ID:               domain.GenerateID(),
		AgencyID:         payload.AgencyID,
		Platform:         payload.Platform,
		Group:            group,
		Mode:             domain.ModeOAuth,
		Status:           domain.ConnectionActive,
		ConnectedByEmail: payload.SubjectEmail,
		TokenType:        tokens.TokenType,
		ExpiresAt:        tokens.ExpiresAt,
		Metadata: map[string]string{
			"account_id": userInfo.ID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if userInfo.Name != "" {
		conn.Metadata["account_name"] = userInfo.Name
	}

	conn.SecretRef = driven.SecretName(payload.Platform, conn.ID)
	if err := s.secrets.Store(ctx, conn.SecretRef, tokens.Credential()); err != nil {
		return nil, fmt.Errorf("store secret: %w", err)
	}

	if err := s.connections.SaveAgencyConnection(ctx, conn); err != nil {
		// Keep the vault consistent with the system of record.
		_ = s.secrets.Delete(ctx, conn.SecretRef)
		return nil, fmt.Errorf("save connection: %w", err)
	}

	return conn, nil
}

func (s *oauthFlowService) callbackURI(platform domain.PlatformID) string {
	return fmt.Sprintf("%s/api/v1/oauth/%s/callback", s.baseURL, platform)
}

// stateError maps state-token domain errors to their stable wire codes.
func stateError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return driving.ErrOAuthBadSignature
	case errors.Is(err, domain.ErrStateTokenExpired):
		return driving.ErrOAuthStateExpired
	case errors.Is(err, domain.ErrMalformedStatePayload):
		return driving.ErrOAuthMalformedState
	case errors.Is(err, domain.ErrInvalidStateToken):
		return driving.ErrOAuthInvalidState
	default:
		return err
	}
}

func accountDisplay(u *driven.ProviderUserInfo) string {
	switch {
	case u.Email != "":
		return u.Email
	case u.Name != "":
		return u.Name
	default:
		return u.ID
	}
}
