package mocks

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// MockConnector is a mock implementation of Connector for testing
type MockConnector struct {
	PlatformsFn          func() []domain.PlatformID
	CapabilitiesFn       func() driven.Capabilities
	AuthURLFn            func(state, redirectURI string, scopes []string) string
	ExchangeCodeFn       func(ctx context.Context, code, redirectURI string) (*driven.ProviderTokens, error)
	RefreshFn            func(ctx context.Context, refreshToken string) (*driven.ProviderTokens, error)
	LongLivedTokenFn     func(ctx context.Context, shortToken string) (*driven.ProviderTokens, error)
	VerifyTokenFn        func(ctx context.Context, accessToken string) (bool, error)
	UserInfoFn           func(ctx context.Context, accessToken string) (*driven.ProviderUserInfo, error)
	VerifyClientAccessFn func(ctx context.Context, agencyToken string, q driven.ClientAccessQuery) (*domain.AccessGrant, error)
}

func NewMockConnector() *MockConnector {
	return &MockConnector{}
}

func (m *MockConnector) Platforms() []domain.PlatformID {
	if m.PlatformsFn != nil {
		return m.PlatformsFn()
	}
	return []domain.PlatformID{domain.PlatformGoogleAds}
}

func (m *MockConnector) Capabilities() driven.Capabilities {
	if m.CapabilitiesFn != nil {
		return m.CapabilitiesFn()
	}
	return driven.Capabilities{driven.CapRefresh, driven.CapClientAccessCheck}
}

func (m *MockConnector) AuthURL(state, redirectURI string, scopes []string) string {
	if m.AuthURLFn != nil {
		return m.AuthURLFn(state, redirectURI, scopes)
	}
	return "https://provider.example.com/authorize?state=" + state
}

func (m *MockConnector) ExchangeCode(ctx context.Context, code, redirectURI string) (*driven.ProviderTokens, error) {
	if m.ExchangeCodeFn != nil {
		return m.ExchangeCodeFn(ctx, code, redirectURI)
	}
	return &driven.ProviderTokens{AccessToken: "access-" + code, TokenType: "Bearer"}, nil
}

func (m *MockConnector) Refresh(ctx context.Context, refreshToken string) (*driven.ProviderTokens, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	return nil, domain.ErrCapabilityNotSupported
}

func (m *MockConnector) LongLivedToken(ctx context.Context, shortToken string) (*driven.ProviderTokens, error) {
	if m.LongLivedTokenFn != nil {
		return m.LongLivedTokenFn(ctx, shortToken)
	}
	return nil, domain.ErrCapabilityNotSupported
}

func (m *MockConnector) VerifyToken(ctx context.Context, accessToken string) (bool, error) {
	if m.VerifyTokenFn != nil {
		return m.VerifyTokenFn(ctx, accessToken)
	}
	return true, nil
}

func (m *MockConnector) UserInfo(ctx context.Context, accessToken string) (*driven.ProviderUserInfo, error) {
	if m.UserInfoFn != nil {
		return m.UserInfoFn(ctx, accessToken)
	}
	return &driven.ProviderUserInfo{ID: "acct-1", Email: "owner@example.com"}, nil
}

func (m *MockConnector) VerifyClientAccess(ctx context.Context, agencyToken string, q driven.ClientAccessQuery) (*domain.AccessGrant, error) {
	if m.VerifyClientAccessFn != nil {
		return m.VerifyClientAccessFn(ctx, agencyToken, q)
	}
	return &domain.AccessGrant{HasAccess: true, AccessLevel: "standard"}, nil
}
