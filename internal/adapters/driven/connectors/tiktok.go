package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Connector = (*TikTokConnector)(nil)

const (
	tiktokAuthURL = "https://business-api.tiktok.com/portal/auth"
	tiktokAPIURL  = "https://business-api.tiktok.com/open_api/v1.3"
)

// TikTokConnectorConfig configures the TikTok connector.
// APIURL can be overridden for tests.
type TikTokConnectorConfig struct {
	AppID      string
	Secret     string
	HTTPClient *http.Client

	AuthURL string
	APIURL  string
}

// TikTokConnector serves the tiktok credential group. TikTok's Business API
// speaks JSON request bodies and wraps every response in a code/message/data
// envelope; code 0 is success, anything else is a provider error.
type TikTokConnector struct {
	cfg  TikTokConnectorConfig
	http *http.Client
}

// NewTikTokConnector creates a connector for the tiktok platform group.
func NewTikTokConnector(cfg TikTokConnectorConfig) *TikTokConnector {
	if cfg.AuthURL == "" {
		cfg.AuthURL = tiktokAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = tiktokAPIURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TikTokConnector{cfg: cfg, http: client}
}

func (c *TikTokConnector) Platforms() []domain.PlatformID {
	return []domain.PlatformID{domain.PlatformTikTokAds}
}

func (c *TikTokConnector) Capabilities() driven.Capabilities {
	return driven.Capabilities{driven.CapRefresh, driven.CapClientAccessCheck}
}

func (c *TikTokConnector) AuthURL(state, redirectURI string, scopes []string) string {
	params := url.Values{
		"app_id":       {c.cfg.AppID},
		"redirect_uri": {redirectURI},
		"state":        {state},
	}
	return c.cfg.AuthURL + "?" + params.Encode()
}

// tiktokEnvelope is the standard Business API response wrapper.
type tiktokEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tiktokTokenData struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_token_expires_in"`
	Scope            string `json:"scope"`
}

func (c *TikTokConnector) ExchangeCode(ctx context.Context, code, redirectURI string) (*driven.ProviderTokens, error) {
	body := map[string]string{
		"app_id":    c.cfg.AppID,
		"secret":    c.cfg.Secret,
		"auth_code": code,
	}
	return c.tokenRequest(ctx, "/oauth2/access_token/", body)
}

func (c *TikTokConnector) Refresh(ctx context.Context, refreshToken string) (*driven.ProviderTokens, error) {
	body := map[string]string{
		"app_id":        c.cfg.AppID,
		"secret":        c.cfg.Secret,
		"refresh_token": refreshToken,
	}
	return c.tokenRequest(ctx, "/oauth2/refresh_token/", body)
}

func (c *TikTokConnector) tokenRequest(ctx context.Context, path string, body map[string]string) (*driven.ProviderTokens, error) {
	data, err := c.post(ctx, path, "", body)
	if err != nil {
		return nil, err
	}

	var td tiktokTokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("decode tiktok token data: %w", err)
	}

	tokens := &driven.ProviderTokens{
		AccessToken:  td.AccessToken,
		RefreshToken: td.RefreshToken,
		TokenType:    "Bearer",
		Scope:        td.Scope,
	}
	if td.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(td.ExpiresIn) * time.Second)
		tokens.ExpiresAt = &exp
	}
	return tokens, nil
}

// LongLivedToken is not a TikTok concept; refresh tokens cover longevity.
func (c *TikTokConnector) LongLivedToken(ctx context.Context, shortToken string) (*driven.ProviderTokens, error) {
	return nil, fmt.Errorf("%w: tiktok has no long-lived token exchange", domain.ErrCapabilityNotSupported)
}

func (c *TikTokConnector) VerifyToken(ctx context.Context, accessToken string) (bool, error) {
	_, err := c.get(ctx, "/user/info/", accessToken, nil)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (c *TikTokConnector) UserInfo(ctx context.Context, accessToken string) (*driven.ProviderUserInfo, error) {
	data, err := c.get(ctx, "/user/info/", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var info struct {
		CoreUserID  string `json:"core_user_id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode tiktok user info: %w", err)
	}

	return &driven.ProviderUserInfo{ID: info.CoreUserID, Email: info.Email, Name: info.DisplayName}, nil
}

type tiktokMemberData struct {
	HasAccess   bool   `json:"has_access"`
	Role        string `json:"role"`
	Advertisers []struct {
		AdvertiserID   string `json:"advertiser_id"`
		AdvertiserName string `json:"advertiser_name"`
	} `json:"advertisers"`
}

// VerifyClientAccess checks whether the agency is a member of the client's
// advertiser accounts.
func (c *TikTokConnector) VerifyClientAccess(ctx context.Context, agencyToken string, q driven.ClientAccessQuery) (*domain.AccessGrant, error) {
	body := map[string]string{
		"email": q.ClientEmail,
	}
	if q.AccountID != "" {
		body["advertiser_id"] = q.AccountID
	}

	data, err := c.post(ctx, "/advertiser/member/check/", agencyToken, body)
	if err != nil {
		return nil, err
	}

	var md tiktokMemberData
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode tiktok member data: %w", err)
	}

	grant := &domain.AccessGrant{}
	if !md.HasAccess || !accessLevelSatisfies(md.Role, q.RequiredAccessLevel) {
		return grant, nil
	}

	grant.HasAccess = true
	grant.AccessLevel = strings.ToLower(md.Role)
	for _, adv := range md.Advertisers {
		grant.Assets = append(grant.Assets, domain.AccessAsset{
			ID:   adv.AdvertiserID,
			Name: adv.AdvertiserName,
			Kind: "advertiser",
		})
	}
	return grant, nil
}

// post sends a JSON body and unwraps the response envelope.
func (c *TikTokConnector) post(ctx context.Context, path, accessToken string, body map[string]string) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal tiktok request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Access-Token", accessToken)
	}

	return c.do(req)
}

// get sends a query request and unwraps the response envelope.
func (c *TikTokConnector) get(ctx context.Context, path, accessToken string, params url.Values) (json.RawMessage, error) {
	endpoint := c.cfg.APIURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if accessToken != "" {
		req.Header.Set("Access-Token", accessToken)
	}

	return c.do(req)
}

func (c *TikTokConnector) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok request: %w", err)
	}
	defer resp.Body.Close()

	var env tiktokEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode tiktok envelope: %w", err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("tiktok api: %s (code %d)", env.Message, env.Code)
	}
	return env.Data, nil
}
