package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Connector = (*GoogleConnector)(nil)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleUserURL  = "https://openidconnect.googleapis.com/v1/userinfo"
	googleAdsAPI   = "https://googleads.googleapis.com"
)

var googleDefaultScopes = []string{
	"https://www.googleapis.com/auth/adwords",
	"https://www.googleapis.com/auth/analytics.readonly",
	"openid",
	"email",
}

// GoogleConnectorConfig configures the Google connector.
// Endpoint overrides exist for tests; zero values use the live endpoints.
type GoogleConnectorConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client

	AuthURL  string
	TokenURL string
	UserURL  string
	APIURL   string
}

// GoogleConnector serves the google credential group: one OAuth grant covers
// both Google Ads and Google Analytics. Google issues refresh tokens, so
// expired access tokens are refreshed in place.
type GoogleConnector struct {
	cfg  GoogleConnectorConfig
	http *http.Client
}

// NewGoogleConnector creates a connector for the google platform group.
func NewGoogleConnector(cfg GoogleConnectorConfig) *GoogleConnector {
	if cfg.AuthURL == "" {
		cfg.AuthURL = googleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleTokenURL
	}
	if cfg.UserURL == "" {
		cfg.UserURL = googleUserURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = googleAdsAPI
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = googleDefaultScopes
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleConnector{cfg: cfg, http: client}
}

func (c *GoogleConnector) Platforms() []domain.PlatformID {
	return []domain.PlatformID{domain.PlatformGoogleAds, domain.PlatformGoogleAnalytics}
}

func (c *GoogleConnector) Capabilities() driven.Capabilities {
	return driven.Capabilities{driven.CapRefresh, driven.CapClientAccessCheck}
}

// AuthURL builds the consent URL. access_type=offline plus prompt=consent
// forces Google to issue a refresh token on every authorization.
func (c *GoogleConnector) AuthURL(state, redirectURI string, scopes []string) string {
	if len(scopes) == 0 {
		scopes = c.cfg.Scopes
	}
	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(scopes, " ")},
		"state":         {state},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	return c.cfg.AuthURL + "?" + params.Encode()
}

// googleTokenResponse is Google's token endpoint payload.
type googleTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

func (c *GoogleConnector) ExchangeCode(ctx context.Context, code, redirectURI string) (*driven.ProviderTokens, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}
	return c.tokenRequest(ctx, form)
}

func (c *GoogleConnector) Refresh(ctx context.Context, refreshToken string) (*driven.ProviderTokens, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	return c.tokenRequest(ctx, form)
}

func (c *GoogleConnector) tokenRequest(ctx context.Context, form url.Values) (*driven.ProviderTokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google token request: %w", err)
	}
	defer resp.Body.Close()

	// Error statuses may carry a non-JSON body (proxy pages, HTML 5xx), so
	// the status takes precedence when the payload does not parse.
	var tr googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("google token endpoint: status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode google token response: %w", err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("google token endpoint: %s: %s", tr.Error, tr.ErrorDesc)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google token endpoint: status %d", resp.StatusCode)
	}

	tokens := &driven.ProviderTokens{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
	}
	if tr.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
		tokens.ExpiresAt = &exp
	}
	return tokens, nil
}

// LongLivedToken is not a Google concept; refresh tokens cover longevity.
func (c *GoogleConnector) LongLivedToken(ctx context.Context, shortToken string) (*driven.ProviderTokens, error) {
	return nil, fmt.Errorf("%w: google has no long-lived token exchange", domain.ErrCapabilityNotSupported)
}

func (c *GoogleConnector) VerifyToken(ctx context.Context, accessToken string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("google token check: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

func (c *GoogleConnector) UserInfo(ctx context.Context, accessToken string) (*driven.ProviderUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo: status %d", resp.StatusCode)
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode google userinfo: %w", err)
	}

	return &driven.ProviderUserInfo{ID: info.Sub, Email: info.Email, Name: info.Name}, nil
}

// googleAccessResponse lists the access links visible to the agency account.
type googleAccessResponse struct {
	Links []struct {
		AccountID   string `json:"account_id"`
		AccountName string `json:"account_name"`
		AccessLevel string `json:"access_level"`
	} `json:"links"`
}

// VerifyClientAccess asks the Ads API which of the client's accounts the
// agency token can see and at what level.
func (c *GoogleConnector) VerifyClientAccess(ctx context.Context, agencyToken string, q driven.ClientAccessQuery) (*domain.AccessGrant, error) {
	endpoint := fmt.Sprintf("%s/v16/accessLinks:search?email=%s", c.cfg.APIURL, url.QueryEscape(q.ClientEmail))
	if q.AccountID != "" {
		endpoint += "&account_id=" + url.QueryEscape(q.AccountID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+agencyToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google access check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google access check: status %d", resp.StatusCode)
	}

	var ar googleAccessResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decode google access response: %w", err)
	}

	grant := &domain.AccessGrant{}
	for _, link := range ar.Links {
		if !accessLevelSatisfies(link.AccessLevel, q.RequiredAccessLevel) {
			continue
		}
		grant.HasAccess = true
		if grant.AccessLevel == "" {
			grant.AccessLevel = link.AccessLevel
		}
		grant.Assets = append(grant.Assets, domain.AccessAsset{
			ID:   link.AccountID,
			Name: link.AccountName,
			Kind: "ad_account",
		})
	}
	return grant, nil
}

// accessLevelSatisfies reports whether a granted level covers the required
// one. Admin covers everything; otherwise the levels must match.
func accessLevelSatisfies(granted, required string) bool {
	if required == "" {
		return true
	}
	if strings.EqualFold(granted, "admin") {
		return true
	}
	return strings.EqualFold(granted, required)
}
