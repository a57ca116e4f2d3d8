package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driving"
)

// Ensure accessRequestService implements AccessRequestService
var _ driving.AccessRequestService = (*accessRequestService)(nil)

// AccessRequestServiceConfig holds configuration for the access request service.
type AccessRequestServiceConfig struct {
	Requests      driven.AccessRequestStore
	Verifications driven.VerificationStore
	Connections   driven.ConnectionStore
}

type accessRequestService struct {
	requests      driven.AccessRequestStore
	verifications driven.VerificationStore
	connections   driven.ConnectionStore
}

// NewAccessRequestService creates a new access request service.
func NewAccessRequestService(cfg AccessRequestServiceConfig) driving.AccessRequestService {
	return &accessRequestService{
		requests:      cfg.Requests,
		verifications: cfg.Verifications,
		connections:   cfg.Connections,
	}
}

// Create records a new access request with a fresh client-facing token.
func (s *accessRequestService) Create(ctx context.Context, req driving.CreateAccessRequest) (*domain.AccessRequest, error) {
	if req.AgencyID == "" || req.ClientEmail == "" || len(req.Platforms) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, p := range req.Platforms {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, p)
		}
	}

	token, err := generateRequestToken()
	if err != nil {
		return nil, fmt.Errorf("generate request token: %w", err)
	}

	now := time.Now()
	accessReq := &domain.AccessRequest{
		ID:          domain.GenerateID(),
		AgencyID:    req.AgencyID,
		ClientEmail: req.ClientEmail,
		Token:       token,
		Platforms:   req.Platforms,
		Status:      domain.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.requests.Save(ctx, accessReq); err != nil {
		return nil, fmt.Errorf("save access request: %w", err)
	}
	return accessReq, nil
}

// Get returns the request and its verification records.
func (s *accessRequestService) Get(ctx context.Context, id string) (*driving.AccessRequestView, error) {
	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.verifications.ListByRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	authorizations, err := s.connections.ListClientAuthorizations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list client authorizations: %w", err)
	}
	return &driving.AccessRequestView{
		Request:        req,
		Verifications:  records,
		Authorizations: authorizations,
	}, nil
}

func generateRequestToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "req_" + hex.EncodeToString(b), nil
}
