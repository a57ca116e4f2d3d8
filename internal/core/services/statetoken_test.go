package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven/mocks"
)

func newTestStateTokenService(store *mocks.MockStateTokenStore) *stateTokenService {
	svc := NewStateTokenService(StateTokenServiceConfig{
		Store:  store,
		Secret: "test-server-secret",
	})
	return svc.(*stateTokenService)
}

func agencyPayload() domain.StatePayload {
	return domain.StatePayload{
		FlowKind:     domain.FlowAgency,
		Platform:     domain.PlatformGoogleAds,
		SubjectEmail: "owner@agency.example",
		AgencyID:     "agency-1",
		RedirectURL:  "https://app.example.com/done",
	}
}

func TestStateTokenRoundTrip(t *testing.T) {
	store := mocks.NewMockStateTokenStore()
	svc := newTestStateTokenService(store)
	ctx := context.Background()

	token, err := svc.Create(ctx, agencyPayload())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Len(t, token, 64) // 256-bit hex

	payload, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, domain.FlowAgency, payload.FlowKind)
	assert.Equal(t, domain.PlatformGoogleAds, payload.Platform)
	assert.Equal(t, "owner@agency.example", payload.SubjectEmail)
	assert.Equal(t, "https://app.example.com/done", payload.RedirectURL)

	// Single-use: the second read must see "not found", not the payload.
	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidStateToken)
}

func TestStateTokenEmptyInput(t *testing.T) {
	svc := newTestStateTokenService(mocks.NewMockStateTokenStore())

	_, err := svc.Validate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidStateToken)
}

func TestStateTokenUnknownToken(t *testing.T) {
	svc := newTestStateTokenService(mocks.NewMockStateTokenStore())

	_, err := svc.Validate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidStateToken)
}

func TestStateTokenPayloadTamper(t *testing.T) {
	store := mocks.NewMockStateTokenStore()
	svc := newTestStateTokenService(store)
	ctx := context.Background()

	token, err := svc.Create(ctx, agencyPayload())
	require.NoError(t, err)

	// Simulate a compromised key-value store rewriting flow context.
	entry := store.States[token]
	require.NotNil(t, entry)
	entry.Payload.SubjectEmail = "attacker@evil.example"

	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestStateTokenSignatureTamper(t *testing.T) {
	store := mocks.NewMockStateTokenStore()
	svc := newTestStateTokenService(store)
	ctx := context.Background()

	token, err := svc.Create(ctx, agencyPayload())
	require.NoError(t, err)

	entry := store.States[token]
	require.NotNil(t, entry)
	entry.Signature = "00" + entry.Signature[2:]

	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestStateTokenExpiredDespiteLiveStoreEntry(t *testing.T) {
	store := mocks.NewMockStateTokenStore()
	svc := newTestStateTokenService(store)
	ctx := context.Background()

	// Issued 601 seconds ago; the mock store never evicts, standing in
	// for a backing store whose TTL has not fired yet.
	payload := agencyPayload()
	payload.CreatedAtMillis = time.Now().Add(-601 * time.Second).UnixMilli()

	token, err := svc.Create(ctx, payload)
	require.NoError(t, err)
	require.NotNil(t, store.States[token])

	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrStateTokenExpired)
}

func TestStateTokenMalformedPayload(t *testing.T) {
	store := mocks.NewMockStateTokenStore()
	svc := newTestStateTokenService(store)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload domain.StatePayload
	}{
		{
			name: "agency flow without subject email",
			payload: domain.StatePayload{
				FlowKind: domain.FlowAgency,
				Platform: domain.PlatformMetaAds,
			},
		},
		{
			name: "client flow without access request",
			payload: domain.StatePayload{
				FlowKind:    domain.FlowClient,
				Platform:    domain.PlatformMetaAds,
				ClientEmail: "client@example.com",
			},
		},
		{
			name:    "unknown flow kind",
			payload: domain.StatePayload{FlowKind: "other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.Create(ctx, tt.payload)
			require.NoError(t, err)

			_, err = svc.Validate(ctx, token)
			assert.ErrorIs(t, err, domain.ErrMalformedStatePayload)
		})
	}
}
