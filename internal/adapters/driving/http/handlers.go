package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driving"
)

// errorResponse is the standard error body
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON decodes the request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// domainStatus maps domain errors to HTTP status codes
func domainStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{}
	ready := true

	if err := s.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		ready = false
	} else {
		checks["postgres"] = "ok"
	}

	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth handlers

// handleLogin exchanges dashboard credentials for an API token.
// POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req driving.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		writeError(w, domainStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCreateUser provisions a dashboard account in the caller's agency.
// POST /api/v1/users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Admins provision users for their own agency only.
	req.AgencyID = claims.AgencyID

	user, err := s.authService.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, domainStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// OAuth flow handlers

type initiateOAuthRequest struct {
	RedirectURL string `json:"redirect_url,omitempty"`
}

// handleOAuthInitiate starts the agency-side OAuth flow for a platform.
// POST /api/v1/oauth/{platform}/initiate
func (s *Server) handleOAuthInitiate(w http.ResponseWriter, r *http.Request) {
	platform := domain.PlatformID(r.PathValue("platform"))
	if !platform.Valid() {
		writeError(w, http.StatusBadRequest, "unknown platform: "+string(platform))
		return
	}

	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Body is optional: only carries the post-flow redirect.
	var body initiateOAuthRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	resp, err := s.oauthService.Initiate(r.Context(), driving.InitiateRequest{
		Platform:    platform,
		AgencyID:    claims.AgencyID,
		UserEmail:   claims.Email,
		RedirectURL: body.RedirectURL,
	})
	if err != nil {
		s.writeOAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleOAuthCallback receives the provider redirect and completes the flow.
// GET /api/v1/oauth/{platform}/callback
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := driving.CallbackRequest{
		Platform:         domain.PlatformID(r.PathValue("platform")),
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	resp, err := s.oauthService.Callback(r.Context(), req)
	if err != nil {
		s.logger.Warn("oauth callback failed", "platform", req.Platform, "error", err)
		s.writeOAuthError(w, r, err)
		return
	}

	// A browser-driven flow carries a redirect target in its state; an
	// API-driven one gets JSON.
	if resp.RedirectURL != "" {
		http.Redirect(w, r, appendQuery(resp.RedirectURL, url.Values{
			"success":       {"true"},
			"connection_id": {resp.ConnectionID},
		}), http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRevokeConnection revokes an agency connection and deletes its secret.
// DELETE /api/v1/connections/{id}
func (s *Server) handleRevokeConnection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.oauthService.Revoke(r.Context(), id); err != nil {
		writeError(w, domainStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeOAuthError maps OAuth flow errors to responses with stable codes.
// Errors carrying a redirect target go back to the browser as
// ?error=<code>; everything else is JSON.
func (s *Server) writeOAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var oauthErr *driving.OAuthError
	if errors.As(err, &oauthErr) {
		if oauthErr.RedirectURL != "" {
			http.Redirect(w, r, appendQuery(oauthErr.RedirectURL, url.Values{
				"error": {oauthErr.Code},
			}), http.StatusFound)
			return
		}
		status := http.StatusBadRequest
		switch oauthErr.Code {
		case driving.ErrOAuthExchangeFailed.Code, driving.ErrOAuthUserInfoFailed.Code:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, oauthErr)
		return
	}
	writeError(w, domainStatus(err), err.Error())
}

// appendQuery adds params to a URL, preserving any it already carries
func appendQuery(rawURL string, params url.Values) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Access request handlers

// handleCreateAccessRequest records a new access request for the agency.
// POST /api/v1/access-requests
func (s *Server) handleCreateAccessRequest(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.CreateAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The request always belongs to the caller's agency.
	req.AgencyID = claims.AgencyID

	created, err := s.accessRequests.Create(r.Context(), req)
	if err != nil {
		writeError(w, domainStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleGetAccessRequest returns a request with its verification records.
// GET /api/v1/access-requests/{id}
func (s *Server) handleGetAccessRequest(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := s.accessRequests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, domainStatus(err), err.Error())
		return
	}

	if view.Request.AgencyID != claims.AgencyID {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Verification handlers

// handleVerifyAuthorization accepts a client's confirmation that a
// platform-native grant was completed and queues the verification.
// POST /api/v1/verify-authorization
func (s *Server) handleVerifyAuthorization(w http.ResponseWriter, r *http.Request) {
	var req driving.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.verificationService.Initiate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyVerified):
			// Idempotent success, not a failure.
			writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.VerificationVerified)})
		case errors.Is(err, domain.ErrAgencyOAuthRequired):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, domainStatus(err), err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// handleVerificationStatus reports a verification record for polling.
// GET /api/v1/verification-status/{id}?platform=google_ads
func (s *Server) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	req := driving.StatusRequest{
		ID:       r.PathValue("id"),
		Platform: domain.PlatformID(r.URL.Query().Get("platform")),
	}

	resp, err := s.verificationService.Status(r.Context(), req)
	if err != nil {
		writeError(w, domainStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
