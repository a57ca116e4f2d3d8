package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authhub-labs/authhub-core/internal/adapters/driven/auth"
	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driving"
)

// Service stubs with scriptable behavior, in the spirit of the driven mocks.

type stubOAuthService struct {
	InitiateFn func(ctx context.Context, req driving.InitiateRequest) (*driving.InitiateResponse, error)
	CallbackFn func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error)
	RevokeFn   func(ctx context.Context, connectionID string) error
}

func (s *stubOAuthService) Initiate(ctx context.Context, req driving.InitiateRequest) (*driving.InitiateResponse, error) {
	if s.InitiateFn != nil {
		return s.InitiateFn(ctx, req)
	}
	return &driving.InitiateResponse{AuthorizationURL: "https://provider.example/auth", State: "state-1"}, nil
}

func (s *stubOAuthService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if s.CallbackFn != nil {
		return s.CallbackFn(ctx, req)
	}
	return &driving.CallbackResponse{ConnectionID: "conn-1", Message: "connected"}, nil
}

func (s *stubOAuthService) Revoke(ctx context.Context, connectionID string) error {
	if s.RevokeFn != nil {
		return s.RevokeFn(ctx, connectionID)
	}
	return nil
}

type stubAccessRequestService struct {
	CreateFn func(ctx context.Context, req driving.CreateAccessRequest) (*domain.AccessRequest, error)
	GetFn    func(ctx context.Context, id string) (*driving.AccessRequestView, error)
}

func (s *stubAccessRequestService) Create(ctx context.Context, req driving.CreateAccessRequest) (*domain.AccessRequest, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, req)
	}
	return &domain.AccessRequest{ID: "req-1", AgencyID: req.AgencyID, Token: "tok-1", Status: domain.RequestPending}, nil
}

func (s *stubAccessRequestService) Get(ctx context.Context, id string) (*driving.AccessRequestView, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type stubVerificationService struct {
	InitiateFn func(ctx context.Context, req driving.VerifyRequest) (*driving.VerifyResponse, error)
	StatusFn   func(ctx context.Context, req driving.StatusRequest) (*driving.StatusResponse, error)
}

func (s *stubVerificationService) Initiate(ctx context.Context, req driving.VerifyRequest) (*driving.VerifyResponse, error) {
	if s.InitiateFn != nil {
		return s.InitiateFn(ctx, req)
	}
	return &driving.VerifyResponse{ID: "ver-1", Status: string(domain.VerificationPending)}, nil
}

func (s *stubVerificationService) Execute(ctx context.Context, job *domain.Job) error {
	return errors.New("not used in handler tests")
}

func (s *stubVerificationService) Status(ctx context.Context, req driving.StatusRequest) (*driving.StatusResponse, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, req)
	}
	return nil, domain.ErrNotFound
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var pingOK = pingerFunc(func(ctx context.Context) error { return nil })

type stubAuthService struct {
	LoginFn      func(ctx context.Context, req driving.LoginRequest) (*driving.LoginResponse, error)
	CreateUserFn func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error)
}

func (s *stubAuthService) Login(ctx context.Context, req driving.LoginRequest) (*driving.LoginResponse, error) {
	if s.LoginFn != nil {
		return s.LoginFn(ctx, req)
	}
	return nil, domain.ErrInvalidCredentials
}

func (s *stubAuthService) CreateUser(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if s.CreateUserFn != nil {
		return s.CreateUserFn(ctx, req)
	}
	return nil, domain.ErrInvalidInput
}

type serverStubs struct {
	oauth         *stubOAuthService
	requests      *stubAccessRequestService
	verifications *stubVerificationService
	auth          *stubAuthService
	db            Pinger
}

func newTestServer(stubs serverStubs) *Server {
	if stubs.oauth == nil {
		stubs.oauth = &stubOAuthService{}
	}
	if stubs.requests == nil {
		stubs.requests = &stubAccessRequestService{}
	}
	if stubs.verifications == nil {
		stubs.verifications = &stubVerificationService{}
	}
	if stubs.auth == nil {
		stubs.auth = &stubAuthService{}
	}
	if stubs.db == nil {
		stubs.db = pingOK
	}

	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewServer(cfg, stubs.oauth, stubs.requests, stubs.verifications,
		stubs.auth, testAuthAdapter, stubs.db, pingOK)
}

var testAuthAdapter = auth.NewAdapter("handler-test-secret")

func bearerToken(t *testing.T, role domain.Role) string {
	t.Helper()
	now := time.Now()
	token, err := testAuthAdapter.GenerateToken(&domain.TokenClaims{
		UserID:    "user-1",
		Email:     "owner@agency.example",
		Role:      role,
		AgencyID:  "agency-1",
		SessionID: "session-1",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return token
}

func doRequest(s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(serverStubs{})
	rec := doRequest(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyReportsDegradedDatabase(t *testing.T) {
	s := newTestServer(serverStubs{
		db: pingerFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})

	rec := doRequest(s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Ready  bool              `json:"ready"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Contains(t, body.Checks["postgres"], "connection refused")
	assert.Equal(t, "ok", body.Checks["redis"])
}

func TestOAuthInitiateRequiresAuth(t *testing.T) {
	s := newTestServer(serverStubs{})
	rec := doRequest(s, http.MethodPost, "/api/v1/oauth/google_ads/initiate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthInitiateRequiresAdmin(t *testing.T) {
	s := newTestServer(serverStubs{})
	rec := doRequest(s, http.MethodPost, "/api/v1/oauth/google_ads/initiate", bearerToken(t, domain.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOAuthInitiate(t *testing.T) {
	var got driving.InitiateRequest
	s := newTestServer(serverStubs{
		oauth: &stubOAuthService{
			InitiateFn: func(ctx context.Context, req driving.InitiateRequest) (*driving.InitiateResponse, error) {
				got = req
				return &driving.InitiateResponse{AuthorizationURL: "https://accounts.google.com/o/oauth2/v2/auth?state=abc", State: "abc"}, nil
			},
		},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/oauth/google_ads/initiate", bearerToken(t, domain.RoleAdmin),
		map[string]string{"redirect_url": "https://app.example/done"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Platform comes from the route, identity from the token, never the body
	assert.Equal(t, domain.PlatformGoogleAds, got.Platform)
	assert.Equal(t, "agency-1", got.AgencyID)
	assert.Equal(t, "owner@agency.example", got.UserEmail)
	assert.Equal(t, "https://app.example/done", got.RedirectURL)

	var body driving.InitiateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.AuthorizationURL, "accounts.google.com")
}

func TestOAuthInitiateUnknownPlatform(t *testing.T) {
	s := newTestServer(serverStubs{})
	rec := doRequest(s, http.MethodPost, "/api/v1/oauth/linkedin_ads/initiate", bearerToken(t, domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthCallbackRedirectsBrowserFlows(t *testing.T) {
	s := newTestServer(serverStubs{
		oauth: &stubOAuthService{
			CallbackFn: func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
				return &driving.CallbackResponse{
					ConnectionID: "conn-9",
					RedirectURL:  "https://app.example/connections?tab=oauth",
				}, nil
			},
		},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/oauth/google_ads/callback?code=c&state=s", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	location := rec.Header().Get("Location")
	assert.Contains(t, location, "https://app.example/connections")
	assert.Contains(t, location, "tab=oauth")
	assert.Contains(t, location, "success=true")
	assert.Contains(t, location, "connection_id=conn-9")
}

func TestOAuthCallbackReturnsJSONWithoutRedirect(t *testing.T) {
	s := newTestServer(serverStubs{})

	rec := doRequest(s, http.MethodGet, "/api/v1/oauth/google_ads/callback?code=c&state=s", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body driving.CallbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "conn-1", body.ConnectionID)
}

func TestOAuthCallbackInvalidState(t *testing.T) {
	s := newTestServer(serverStubs{
		oauth: &stubOAuthService{
			CallbackFn: func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
				return nil, driving.ErrOAuthInvalidState
			},
		},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/oauth/google_ads/callback?code=c&state=stale", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body driving.OAuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_state", body.Code)
}

func TestOAuthCallbackErrorRedirectsWhenTargetKnown(t *testing.T) {
	s := newTestServer(serverStubs{
		oauth: &stubOAuthService{
			CallbackFn: func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
				return nil, &driving.OAuthError{
					Code:        "exchange_failed",
					Description: "provider returned 500",
					RedirectURL: "https://app.example/connections",
				}
			},
		},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/oauth/google_ads/callback?code=c&state=s", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=exchange_failed")
}

func TestOAuthCallbackExchangeFailureIsBadGateway(t *testing.T) {
	s := newTestServer(serverStubs{
		oauth: &stubOAuthService{
			CallbackFn: func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
				return nil, &driving.OAuthError{Code: "exchange_failed", Description: "provider returned 500"}
			},
		},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/oauth/google_ads/callback?code=c&state=s", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRevokeConnection(t *testing.T) {
	var revoked string
	s := newTestServer(serverStubs{
		oauth: &stubOAuthService{
			RevokeFn: func(ctx context.Context, connectionID string) error {
				revoked = connectionID
				return nil
			},
		},
	})

	rec := doRequest(s, http.MethodDelete, "/api/v1/connections/conn-7", bearerToken(t, domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "conn-7", revoked)
}

func TestRevokeConnectionNotFound(t *testing.T) {
	s := newTestServer(serverStubs{
		oauth: &stubOAuthService{
			RevokeFn: func(ctx context.Context, connectionID string) error {
				return domain.ErrNotFound
			},
		},
	})

	rec := doRequest(s, http.MethodDelete, "/api/v1/connections/missing", bearerToken(t, domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAccessRequestUsesCallerAgency(t *testing.T) {
	var got driving.CreateAccessRequest
	s := newTestServer(serverStubs{
		requests: &stubAccessRequestService{
			CreateFn: func(ctx context.Context, req driving.CreateAccessRequest) (*domain.AccessRequest, error) {
				got = req
				return &domain.AccessRequest{ID: "req-1", AgencyID: req.AgencyID, Token: "tok-1"}, nil
			},
		},
	})

	// A spoofed agency_id in the body must be ignored
	rec := doRequest(s, http.MethodPost, "/api/v1/access-requests", bearerToken(t, domain.RoleMember), map[string]interface{}{
		"agency_id":    "someone-else",
		"client_email": "client@example.com",
		"platforms":    []string{"google_ads", "meta_ads"},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "agency-1", got.AgencyID)
	assert.Equal(t, "client@example.com", got.ClientEmail)
	assert.Equal(t, []domain.PlatformID{domain.PlatformGoogleAds, domain.PlatformMetaAds}, got.Platforms)
}

func TestCreateAccessRequestInvalidInput(t *testing.T) {
	s := newTestServer(serverStubs{
		requests: &stubAccessRequestService{
			CreateFn: func(ctx context.Context, req driving.CreateAccessRequest) (*domain.AccessRequest, error) {
				return nil, domain.ErrInvalidInput
			},
		},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/access-requests", bearerToken(t, domain.RoleMember), map[string]interface{}{
		"client_email": "client@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAccessRequest(t *testing.T) {
	s := newTestServer(serverStubs{
		requests: &stubAccessRequestService{
			GetFn: func(ctx context.Context, id string) (*driving.AccessRequestView, error) {
				return &driving.AccessRequestView{
					Request: &domain.AccessRequest{ID: id, AgencyID: "agency-1", Status: domain.RequestPartial},
					Verifications: []*domain.VerificationRecord{
						{ID: "ver-1", Status: domain.VerificationVerified},
						{ID: "ver-2", Status: domain.VerificationFailed},
					},
				}, nil
			},
		},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/access-requests/req-1", bearerToken(t, domain.RoleMember), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view driving.AccessRequestView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, domain.RequestPartial, view.Request.Status)
	assert.Len(t, view.Verifications, 2)
}

func TestGetAccessRequestOtherAgencyHidden(t *testing.T) {
	s := newTestServer(serverStubs{
		requests: &stubAccessRequestService{
			GetFn: func(ctx context.Context, id string) (*driving.AccessRequestView, error) {
				return &driving.AccessRequestView{
					Request: &domain.AccessRequest{ID: id, AgencyID: "other-agency"},
				}, nil
			},
		},
	})

	// Cross-agency reads 404, not 403, to avoid leaking existence
	rec := doRequest(s, http.MethodGet, "/api/v1/access-requests/req-1", bearerToken(t, domain.RoleMember), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyAuthorizationAccepted(t *testing.T) {
	var got driving.VerifyRequest
	s := newTestServer(serverStubs{
		verifications: &stubVerificationService{
			InitiateFn: func(ctx context.Context, req driving.VerifyRequest) (*driving.VerifyResponse, error) {
				got = req
				return &driving.VerifyResponse{ID: "ver-1", Status: string(domain.VerificationPending)}, nil
			},
		},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/verify-authorization", "", map[string]string{
		"token":        "tok-1",
		"platform":     "google_ads",
		"client_email": "client@example.com",
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, domain.PlatformGoogleAds, got.Platform)
}

func TestVerifyAuthorizationAlreadyVerified(t *testing.T) {
	s := newTestServer(serverStubs{
		verifications: &stubVerificationService{
			InitiateFn: func(ctx context.Context, req driving.VerifyRequest) (*driving.VerifyResponse, error) {
				return nil, domain.ErrAlreadyVerified
			},
		},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/verify-authorization", "", map[string]string{
		"token": "tok-1", "platform": "google_ads", "client_email": "client@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "verified", body["status"])
}

func TestVerifyAuthorizationWithoutAgencyConnection(t *testing.T) {
	s := newTestServer(serverStubs{
		verifications: &stubVerificationService{
			InitiateFn: func(ctx context.Context, req driving.VerifyRequest) (*driving.VerifyResponse, error) {
				return nil, domain.ErrAgencyOAuthRequired
			},
		},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/verify-authorization", "", map[string]string{
		"token": "tok-1", "platform": "google_ads", "client_email": "client@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerificationStatus(t *testing.T) {
	s := newTestServer(serverStubs{
		verifications: &stubVerificationService{
			StatusFn: func(ctx context.Context, req driving.StatusRequest) (*driving.StatusResponse, error) {
				assert.Equal(t, "ver-1", req.ID)
				assert.Equal(t, domain.PlatformMetaAds, req.Platform)
				return &driving.StatusResponse{ID: "ver-1", Status: domain.VerificationVerified}, nil
			},
		},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/verification-status/ver-1?platform=meta_ads", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body driving.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.VerificationVerified, body.Status)
}

func TestVerificationStatusNotFound(t *testing.T) {
	s := newTestServer(serverStubs{})
	rec := doRequest(s, http.MethodGet, "/api/v1/verification-status/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestServer(serverStubs{
		auth: &stubAuthService{
			LoginFn: func(ctx context.Context, req driving.LoginRequest) (*driving.LoginResponse, error) {
				assert.Equal(t, "owner@agency.example", req.Email)
				return &driving.LoginResponse{
					Token: "signed-token",
					User:  &domain.User{ID: "user-1", AgencyID: "agency-1"},
				}, nil
			},
		},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "owner@agency.example", "password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body driving.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "signed-token", body.Token)
	// The password hash must never appear on the wire.
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	s := newTestServer(serverStubs{})

	rec := doRequest(s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "owner@agency.example", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	s := newTestServer(serverStubs{})

	rec := doRequest(s, http.MethodPost, "/api/v1/users", bearerToken(t, domain.RoleMember), map[string]string{
		"email": "new@agency.example", "password": "secret",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUserUsesCallerAgency(t *testing.T) {
	s := newTestServer(serverStubs{
		auth: &stubAuthService{
			CreateUserFn: func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
				// The admin's agency wins over anything in the body.
				assert.Equal(t, "agency-1", req.AgencyID)
				return &domain.User{ID: "user-2", AgencyID: req.AgencyID, Email: req.Email}, nil
			},
		},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/users", bearerToken(t, domain.RoleAdmin), map[string]string{
		"agency_id": "someone-elses-agency",
		"email":     "new@agency.example",
		"password":  "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "agency-1", body.AgencyID)
}
