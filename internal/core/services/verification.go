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

// Ensure verificationService implements VerificationService
var _ driving.VerificationService = (*verificationService)(nil)

// DefaultVerificationEstimate is the completion estimate returned to
// polling clients.
const DefaultVerificationEstimate = 30 * time.Second

// VerificationServiceConfig holds configuration for the verification service.
type VerificationServiceConfig struct {
	Requests      driven.AccessRequestStore
	Verifications driven.VerificationStore
	Connections   driven.ConnectionStore
	Secrets       driven.SecretStore
	Registry      *connectors.Registry
	Queue         driven.JobQueue
	Logger        *slog.Logger

	// Estimate overrides DefaultVerificationEstimate when positive.
	Estimate time.Duration
}

type verificationService struct {
	requests      driven.AccessRequestStore
	verifications driven.VerificationStore
	connections   driven.ConnectionStore
	secrets       driven.SecretStore
	registry      *connectors.Registry
	queue         driven.JobQueue
	logger        *slog.Logger
	estimate      time.Duration
}

// NewVerificationService creates a new verification service.
func NewVerificationService(cfg VerificationServiceConfig) driving.VerificationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	estimate := cfg.Estimate
	if estimate <= 0 {
		estimate = DefaultVerificationEstimate
	}
	return &verificationService{
		requests:      cfg.Requests,
		verifications: cfg.Verifications,
		connections:   cfg.Connections,
		secrets:       cfg.Secrets,
		registry:      cfg.Registry,
		queue:         cfg.Queue,
		logger:        logger,
		estimate:      estimate,
	}
}

// Initiate upserts the verification record to pending and enqueues the
// background check. Concurrent initiates for the same pair converge on one
// row through the store's upsert; a stuck verifying record is forced back
// through here as well, which is the only escape hatch after a worker crash.
func (s *verificationService) Initiate(ctx context.Context, req driving.VerifyRequest) (*driving.VerifyResponse, error) {
	accessReq, err := s.requests.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if !req.Platform.Valid() || !accessReq.HasPlatform(req.Platform) {
		return nil, fmt.Errorf("%w: platform %q not part of request", domain.ErrInvalidInput, req.Platform)
	}

	existing, err := s.verifications.GetByRequestPlatform(ctx, accessReq.ID, req.Platform)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up verification: %w", err)
	}
	if existing != nil && existing.Status == domain.VerificationVerified {
		return nil, domain.ErrAlreadyVerified
	}

	// Verification needs a credential to verify with. No record is
	// written when the agency has never connected via OAuth.
	conn, err := s.connections.GetActiveAgencyConnection(ctx, accessReq.AgencyID, req.Platform.Group())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAgencyOAuthRequired
		}
		return nil, fmt.Errorf("look up agency connection: %w", err)
	}
	if !conn.Usable() {
		return nil, domain.ErrAgencyOAuthRequired
	}

	now := time.Now()
	rec, err := s.verifications.Upsert(ctx, &domain.VerificationRecord{
		ID:                  domain.GenerateID(),
		AccessRequestID:     accessReq.ID,
		Platform:            req.Platform,
		AgencyConnectionID:  conn.ID,
		ClientEmail:         req.ClientEmail,
		RequiredAccessLevel: req.RequiredAccessLevel,
		Status:              domain.VerificationPending,
		LastAttemptAt:       now,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert verification: %w", err)
	}

	// The first initiate for a pair also records the client's declared
	// platform-native grant. Best effort: the verification record is the
	// source of truth for completion.
	if existing == nil {
		authz := &domain.ClientAuthorization{
			ID:              domain.GenerateID(),
			AccessRequestID: accessReq.ID,
			ClientEmail:     req.ClientEmail,
			Platform:        req.Platform,
			Mode:            domain.ModeManualInvitation,
			Status:          domain.ConnectionActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.connections.SaveClientAuthorization(ctx, authz); err != nil {
			s.logger.Warn("failed to record client authorization",
				"access_request_id", accessReq.ID,
				"platform", req.Platform,
				"error", err,
			)
		}
	}

	job := domain.NewVerificationJob(domain.VerificationJobPayload{
		VerificationID:      rec.ID,
		AccessRequestID:     accessReq.ID,
		Platform:            req.Platform,
		ClientEmail:         req.ClientEmail,
		RequiredAccessLevel: req.RequiredAccessLevel,
		AgencyConnectionID:  conn.ID,
		AgencyEmail:         conn.ConnectedByEmail,
	})
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue verification job: %w", err)
	}

	s.logger.Info("verification initiated",
		"verification_id", rec.ID,
		"access_request_id", accessReq.ID,
		"platform", req.Platform,
		"attempts", rec.Attempts,
	)

	return &driving.VerifyResponse{
		ID:            rec.ID,
		Status:        "verifying",
		EstimatedTime: now.Add(s.estimate),
	}, nil
}

// Execute performs the provider-side access check for one delivered job.
// The queue may redeliver, so an already-verified record is a strict no-op:
// no status write, no re-aggregation, no side effects. Provider and
// credential failures are recorded on the record and never returned - a
// verification failure must not crash the shared worker or trigger blind
// redelivery against an action only the client can repeat.
func (s *verificationService) Execute(ctx context.Context, job *domain.Job) error {
	rec, err := s.verifications.Get(ctx, job.Payload.VerificationID)
	if err != nil {
		return fmt.Errorf("load verification %s: %w", job.Payload.VerificationID, err)
	}
	if rec.Status == domain.VerificationVerified {
		s.logger.Info("verification already verified, skipping",
			"verification_id", rec.ID)
		return nil
	}

	rec.MarkVerifying()
	if err := s.verifications.Update(ctx, rec); err != nil {
		return fmt.Errorf("mark verifying: %w", err)
	}

	grant, checkErr := s.check(ctx, job, rec)
	if checkErr != nil {
		rec.MarkFailed(checkErr.Error())
		if err := s.verifications.Update(ctx, rec); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		s.logger.Warn("verification failed",
			"verification_id", rec.ID,
			"platform", rec.Platform,
			"reason", checkErr.Error(),
		)
		return s.reaggregate(ctx, rec.AccessRequestID)
	}

	rec.MarkVerified(grant)
	if err := s.verifications.Update(ctx, rec); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	s.logger.Info("verification succeeded",
		"verification_id", rec.ID,
		"platform", rec.Platform,
		"access_level", grant.AccessLevel,
	)
	return s.reaggregate(ctx, rec.AccessRequestID)
}

// check resolves the agency credential and runs the connector call. All
// failures here are verification outcomes, not infrastructure errors.
func (s *verificationService) check(ctx context.Context, job *domain.Job, rec *domain.VerificationRecord) (*domain.AccessGrant, error) {
	conn, err := s.connections.GetAgencyConnection(ctx, job.Payload.AgencyConnectionID)
	if err != nil {
		return nil, fmt.Errorf("agency connection unavailable: %w", err)
	}
	if conn.SecretRef == "" {
		return nil, errors.New("agency connection has no stored credential")
	}

	cred, err := s.secrets.Get(ctx, conn.SecretRef)
	if err != nil {
		return nil, fmt.Errorf("agency credential unavailable: %w", err)
	}

	connector, err := s.registry.Get(rec.Platform)
	if err != nil {
		return nil, err
	}
	if !connector.Capabilities().Has(driven.CapClientAccessCheck) {
		return nil, fmt.Errorf("%w: %s cannot confirm client access", domain.ErrCapabilityNotSupported, rec.Platform)
	}

	// Refresh a stale credential in place; the vault keeps the same name
	// so the connection row is untouched.
	if cred.NeedsRefresh() && cred.RefreshToken != "" && connector.Capabilities().Has(driven.CapRefresh) {
		fresh, err := connector.Refresh(ctx, cred.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("refresh agency credential: %w", err)
		}
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = cred.RefreshToken
		}
		cred = fresh.Credential()
		if err := s.secrets.Update(ctx, conn.SecretRef, cred); err != nil {
			return nil, fmt.Errorf("persist refreshed credential: %w", err)
		}
	}

	grant, err := connector.VerifyClientAccess(ctx, cred.AccessToken, driven.ClientAccessQuery{
		Platform:            rec.Platform,
		ClientEmail:         rec.ClientEmail,
		RequiredAccessLevel: rec.RequiredAccessLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("provider access check: %w", err)
	}
	if !grant.HasAccess {
		return nil, errors.New("provider reports no access granted for the agency")
	}
	return grant, nil
}

// reaggregate recomputes the access request's derived status from a fresh
// read of every verification record under it. A counter would lose updates
// when two platform verifications complete concurrently.
func (s *verificationService) reaggregate(ctx context.Context, accessRequestID string) error {
	records, err := s.verifications.ListByRequest(ctx, accessRequestID)
	if err != nil {
		return fmt.Errorf("list verifications: %w", err)
	}
	status := domain.AggregateStatus(records)
	if err := s.requests.UpdateStatus(ctx, accessRequestID, status); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	s.logger.Info("access request status recomputed",
		"access_request_id", accessRequestID,
		"status", status,
	)
	return nil
}

// Status reports the record for polling, by verification ID or by
// (access request ID, platform).
func (s *verificationService) Status(ctx context.Context, req driving.StatusRequest) (*driving.StatusResponse, error) {
	rec, err := s.verifications.Get(ctx, req.ID)
	if errors.Is(err, domain.ErrNotFound) && req.Platform != "" {
		rec, err = s.verifications.GetByRequestPlatform(ctx, req.ID, req.Platform)
	}
	if err != nil {
		return nil, err
	}

	return &driving.StatusResponse{
		ID:           rec.ID,
		Status:       rec.Status,
		Attempts:     rec.Attempts,
		VerifiedAt:   rec.VerifiedAt,
		Permissions:  rec.VerifiedPermissions,
		ErrorMessage: rec.ErrorMessage,
	}, nil
}
