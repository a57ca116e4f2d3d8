package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

func TestGoogleAuthURL(t *testing.T) {
	c := NewGoogleConnector(GoogleConnectorConfig{ClientID: "client-id"})

	raw := c.AuthURL("state-123", "http://localhost:8080/api/v1/oauth/google_ads/callback", nil)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	// Refresh token issuance requires offline access with forced consent
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "adwords")
}

func TestGoogleExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "auth-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "ya29.access",
			"refresh_token": "1//refresh",
			"expires_in": 3600,
			"token_type": "Bearer",
			"scope": "https://www.googleapis.com/auth/adwords"
		}`))
	}))
	defer srv.Close()

	c := NewGoogleConnector(GoogleConnectorConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     srv.URL,
	})

	tokens, err := c.ExchangeCode(context.Background(), "auth-code", "http://localhost/callback")
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", tokens.AccessToken)
	assert.Equal(t, "1//refresh", tokens.RefreshToken)
	require.NotNil(t, tokens.ExpiresAt)
}

func TestGoogleExchangeCodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "Code was already redeemed."}`))
	}))
	defer srv.Close()

	c := NewGoogleConnector(GoogleConnectorConfig{TokenURL: srv.URL})

	_, err := c.ExchangeCode(context.Background(), "stale-code", "http://localhost/callback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestGoogleExchangeCodeNonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html><body>502 Bad Gateway</body></html>`))
	}))
	defer srv.Close()

	c := NewGoogleConnector(GoogleConnectorConfig{TokenURL: srv.URL})

	_, err := c.ExchangeCode(context.Background(), "auth-code", "http://localhost/callback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.NotContains(t, err.Error(), "decode")
}

func TestGoogleRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "1//refresh", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "ya29.fresh", "expires_in": 3600, "token_type": "Bearer"}`))
	}))
	defer srv.Close()

	c := NewGoogleConnector(GoogleConnectorConfig{TokenURL: srv.URL})

	tokens, err := c.Refresh(context.Background(), "1//refresh")
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", tokens.AccessToken)
}

func TestGoogleLongLivedTokenUnsupported(t *testing.T) {
	c := NewGoogleConnector(GoogleConnectorConfig{})

	_, err := c.LongLivedToken(context.Background(), "short")
	assert.ErrorIs(t, err, domain.ErrCapabilityNotSupported)
}

func TestGoogleVerifyClientAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer agency-token", r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v16/accessLinks:search"))
		assert.Equal(t, "client@example.com", r.URL.Query().Get("email"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"links": [
				{"account_id": "123-456-7890", "account_name": "Client Main", "access_level": "admin"},
				{"account_id": "123-456-7891", "account_name": "Client Alt", "access_level": "read_only"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewGoogleConnector(GoogleConnectorConfig{APIURL: srv.URL})

	grant, err := c.VerifyClientAccess(context.Background(), "agency-token", driven.ClientAccessQuery{
		Platform:            domain.PlatformGoogleAds,
		ClientEmail:         "client@example.com",
		RequiredAccessLevel: "admin",
	})
	require.NoError(t, err)
	assert.True(t, grant.HasAccess)
	assert.Equal(t, "admin", grant.AccessLevel)
	// Only the admin link satisfies the required level
	require.Len(t, grant.Assets, 1)
	assert.Equal(t, "123-456-7890", grant.Assets[0].ID)
}

func TestGoogleVerifyClientAccessNoGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"links": []}`))
	}))
	defer srv.Close()

	c := NewGoogleConnector(GoogleConnectorConfig{APIURL: srv.URL})

	grant, err := c.VerifyClientAccess(context.Background(), "agency-token", driven.ClientAccessQuery{
		Platform:    domain.PlatformGoogleAds,
		ClientEmail: "client@example.com",
	})
	require.NoError(t, err)
	assert.False(t, grant.HasAccess)
	assert.Empty(t, grant.Assets)
}
