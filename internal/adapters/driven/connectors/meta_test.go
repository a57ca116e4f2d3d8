package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

func TestMetaAuthURL(t *testing.T) {
	c := NewMetaConnector(MetaConnectorConfig{ClientID: "app-id"})

	raw := c.AuthURL("state-123", "http://localhost:8080/api/v1/oauth/meta_ads/callback", nil)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "app-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	// Meta separates scopes with commas, not spaces
	assert.Contains(t, q.Get("scope"), "ads_management,")
}

func TestMetaExchangeCodeIsGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		assert.Equal(t, "auth-code", r.URL.Query().Get("code"))
		assert.Equal(t, "app-secret", r.URL.Query().Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "EAAB.short", "token_type": "bearer", "expires_in": 5183944}`))
	}))
	defer srv.Close()

	c := NewMetaConnector(MetaConnectorConfig{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		GraphURL:     srv.URL,
	})

	tokens, err := c.ExchangeCode(context.Background(), "auth-code", "http://localhost/callback")
	require.NoError(t, err)
	assert.Equal(t, "EAAB.short", tokens.AccessToken)
	assert.Empty(t, tokens.RefreshToken)
}

func TestMetaLongLivedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
		assert.Equal(t, "EAAB.short", q.Get("fb_exchange_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "EAAB.long", "token_type": "bearer", "expires_in": 5183944}`))
	}))
	defer srv.Close()

	c := NewMetaConnector(MetaConnectorConfig{GraphURL: srv.URL})

	tokens, err := c.LongLivedToken(context.Background(), "EAAB.short")
	require.NoError(t, err)
	assert.Equal(t, "EAAB.long", tokens.AccessToken)
	require.NotNil(t, tokens.ExpiresAt)
}

func TestMetaRefreshUnsupported(t *testing.T) {
	c := NewMetaConnector(MetaConnectorConfig{})

	_, err := c.Refresh(context.Background(), "whatever")
	assert.ErrorIs(t, err, domain.ErrCapabilityNotSupported)
}

func TestMetaGraphErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Invalid verification code format.", "type": "OAuthException", "code": 100}}`))
	}))
	defer srv.Close()

	c := NewMetaConnector(MetaConnectorConfig{GraphURL: srv.URL})

	_, err := c.ExchangeCode(context.Background(), "bad-code", "http://localhost/callback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid verification code")
}

func TestMetaExchangeCodeNonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html><body>Sorry, something went wrong.</body></html>`))
	}))
	defer srv.Close()

	c := NewMetaConnector(MetaConnectorConfig{GraphURL: srv.URL})

	_, err := c.ExchangeCode(context.Background(), "auth-code", "http://localhost/callback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.NotContains(t, err.Error(), "decode")
}

func TestMetaVerifyClientAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/business_users", r.URL.Path)
		assert.Equal(t, "client@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "agency-token", r.URL.Query().Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{"id": "bu-1", "name": "Agency Seat", "role": "ADMIN",
				 "business": {"id": "biz-9", "name": "Client Co"}}
			]
		}`))
	}))
	defer srv.Close()

	c := NewMetaConnector(MetaConnectorConfig{GraphURL: srv.URL})

	grant, err := c.VerifyClientAccess(context.Background(), "agency-token", driven.ClientAccessQuery{
		Platform:    domain.PlatformMetaAds,
		ClientEmail: "client@example.com",
	})
	require.NoError(t, err)
	assert.True(t, grant.HasAccess)
	assert.Equal(t, "admin", grant.AccessLevel)
	require.Len(t, grant.Assets, 1)
	assert.Equal(t, "biz-9", grant.Assets[0].ID)
	assert.Equal(t, "business", grant.Assets[0].Kind)
}
