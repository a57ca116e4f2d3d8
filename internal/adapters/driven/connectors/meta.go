package connectors

import (
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
var _ driven.Connector = (*MetaConnector)(nil)

const (
	metaAuthURL  = "https://www.facebook.com/v19.0/dialog/oauth"
	metaGraphURL = "https://graph.facebook.com/v19.0"
)

var metaDefaultScopes = []string{"ads_management", "business_management", "email"}

// MetaConnectorConfig configures the Meta connector.
// GraphURL can be overridden for tests.
type MetaConnectorConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client

	AuthURL  string
	GraphURL string
}

// MetaConnector serves the meta credential group. Meta issues no refresh
// tokens: the short-lived token from the code exchange must be upgraded to
// a ~60-day long-lived token, and the agency re-authorizes when it lapses.
type MetaConnector struct {
	cfg  MetaConnectorConfig
	http *http.Client
}

// NewMetaConnector creates a connector for the meta platform group.
func NewMetaConnector(cfg MetaConnectorConfig) *MetaConnector {
	if cfg.AuthURL == "" {
		cfg.AuthURL = metaAuthURL
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = metaGraphURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = metaDefaultScopes
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &MetaConnector{cfg: cfg, http: client}
}

func (c *MetaConnector) Platforms() []domain.PlatformID {
	return []domain.PlatformID{domain.PlatformMetaAds}
}

func (c *MetaConnector) Capabilities() driven.Capabilities {
	return driven.Capabilities{driven.CapLongLivedToken, driven.CapClientAccessCheck}
}

func (c *MetaConnector) AuthURL(state, redirectURI string, scopes []string) string {
	if len(scopes) == 0 {
		scopes = c.cfg.Scopes
	}
	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(scopes, ",")},
		"state":         {state},
	}
	return c.cfg.AuthURL + "?" + params.Encode()
}

// metaTokenResponse is the Graph API token payload. Errors arrive as a
// nested object rather than OAuth-style top-level fields.
type metaTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// ExchangeCode exchanges the code via GET with query parameters, the Graph
// API's dialect for this endpoint.
func (c *MetaConnector) ExchangeCode(ctx context.Context, code, redirectURI string) (*driven.ProviderTokens, error) {
	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}
	return c.tokenRequest(ctx, c.cfg.GraphURL+"/oauth/access_token?"+params.Encode())
}

// Refresh is not supported; Meta's longevity mechanism is the long-lived
// token upgrade.
func (c *MetaConnector) Refresh(ctx context.Context, refreshToken string) (*driven.ProviderTokens, error) {
	return nil, fmt.Errorf("%w: meta issues no refresh tokens", domain.ErrCapabilityNotSupported)
}

// LongLivedToken upgrades a short-lived token via fb_exchange_token.
func (c *MetaConnector) LongLivedToken(ctx context.Context, shortToken string) (*driven.ProviderTokens, error) {
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.cfg.ClientID},
		"client_secret":     {c.cfg.ClientSecret},
		"fb_exchange_token": {shortToken},
	}
	return c.tokenRequest(ctx, c.cfg.GraphURL+"/oauth/access_token?"+params.Encode())
}

func (c *MetaConnector) tokenRequest(ctx context.Context, endpoint string) (*driven.ProviderTokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meta token request: %w", err)
	}
	defer resp.Body.Close()

	// The Graph API reports failures as a JSON error object, but gateways in
	// front of it can answer with non-JSON bodies. Prefer the status then.
	var tr metaTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("meta token endpoint: status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode meta token response: %w", err)
	}
	if tr.Error != nil {
		return nil, fmt.Errorf("meta token endpoint: %s (code %d)", tr.Error.Message, tr.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meta token endpoint: status %d", resp.StatusCode)
	}

	tokens := &driven.ProviderTokens{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
	}
	if tokens.TokenType == "" {
		tokens.TokenType = "Bearer"
	}
	if tr.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
		tokens.ExpiresAt = &exp
	}
	return tokens, nil
}

// VerifyToken inspects the token via debug_token.
func (c *MetaConnector) VerifyToken(ctx context.Context, accessToken string) (bool, error) {
	appToken := c.cfg.ClientID + "|" + c.cfg.ClientSecret
	params := url.Values{
		"input_token":  {accessToken},
		"access_token": {appToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GraphURL+"/debug_token?"+params.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("meta token check: %w", err)
	}
	defer resp.Body.Close()

	var dr struct {
		Data struct {
			IsValid bool `json:"is_valid"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return false, fmt.Errorf("decode meta debug response: %w", err)
	}
	return dr.Data.IsValid, nil
}

func (c *MetaConnector) UserInfo(ctx context.Context, accessToken string) (*driven.ProviderUserInfo, error) {
	params := url.Values{
		"fields":       {"id,name,email"},
		"access_token": {accessToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GraphURL+"/me?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meta userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meta userinfo: status %d", resp.StatusCode)
	}

	var info struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode meta userinfo: %w", err)
	}

	return &driven.ProviderUserInfo{ID: info.ID, Email: info.Email, Name: info.Name}, nil
}

// metaBusinessUsersResponse lists business users visible to the agency.
type metaBusinessUsersResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Business struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"business"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// VerifyClientAccess checks whether the agency appears among the client
// business's users, via the agency's own token.
func (c *MetaConnector) VerifyClientAccess(ctx context.Context, agencyToken string, q driven.ClientAccessQuery) (*domain.AccessGrant, error) {
	params := url.Values{
		"email":        {q.ClientEmail},
		"access_token": {agencyToken},
	}
	if q.AccountID != "" {
		params.Set("business_id", q.AccountID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GraphURL+"/me/business_users?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meta access check: %w", err)
	}
	defer resp.Body.Close()

	var br metaBusinessUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decode meta access response: %w", err)
	}
	if br.Error != nil {
		return nil, fmt.Errorf("meta access check: %s (code %d)", br.Error.Message, br.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meta access check: status %d", resp.StatusCode)
	}

	grant := &domain.AccessGrant{}
	for _, user := range br.Data {
		if !accessLevelSatisfies(user.Role, q.RequiredAccessLevel) {
			continue
		}
		grant.HasAccess = true
		if grant.AccessLevel == "" {
			grant.AccessLevel = strings.ToLower(user.Role)
		}
		grant.Assets = append(grant.Assets, domain.AccessAsset{
			ID:   user.Business.ID,
			Name: user.Business.Name,
			Kind: "business",
		})
	}
	return grant, nil
}
