package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driving"
)

// Ensure stateTokenService implements StateTokenService
var _ driving.StateTokenService = (*stateTokenService)(nil)

// DefaultStateTokenTTL bounds both the store entry and the payload age.
const DefaultStateTokenTTL = 10 * time.Minute

// StateTokenServiceConfig holds configuration for the state token service.
type StateTokenServiceConfig struct {
	// Store is the fast key-value layer holding pending states.
	Store driven.StateTokenStore

	// Secret is the server-side HMAC key. Must be non-empty.
	Secret string

	// TTL overrides DefaultStateTokenTTL when positive.
	TTL time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type stateTokenService struct {
	store  driven.StateTokenStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateTokenService creates a new state token service.
func NewStateTokenService(cfg StateTokenServiceConfig) driving.StateTokenService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultStateTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &stateTokenService{
		store:  cfg.Store,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
	}
}

// Create issues a signed single-use state token for the payload.
func (s *stateTokenService) Create(ctx context.Context, payload domain.StatePayload) (string, error) {
	token, err := generateStateToken()
	if err != nil {
		return "", fmt.Errorf("generate state token: %w", err)
	}

	if payload.CreatedAtMillis == 0 {
		payload.CreatedAtMillis = s.now().UnixMilli()
	}

	sig, err := s.sign(token, &payload)
	if err != nil {
		return "", fmt.Errorf("sign state token: %w", err)
	}

	entry := &driven.StateToken{
		Token:     token,
		Payload:   payload,
		Signature: sig,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.Save(ctx, entry); err != nil {
		return "", fmt.Errorf("save state token: %w", err)
	}

	return token, nil
}

// Validate consumes a state token and returns its payload.
// Order matters: signature first (no field is trusted before it verifies),
// then flow-field validation, then the explicit age check. The age check is
// independent of the store TTL so clock skew between issuance and eviction
// cannot extend the window.
func (s *stateTokenService) Validate(ctx context.Context, token string) (*domain.StatePayload, error) {
	if token == "" {
		return nil, domain.ErrInvalidStateToken
	}

	entry, err := s.store.GetAndDelete(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get state token: %w", err)
	}
	if entry == nil {
		// Not found, expired out of the store, or already consumed by a
		// concurrent duplicate read. All are the same to the caller.
		return nil, domain.ErrInvalidStateToken
	}

	expected, err := s.sign(token, &entry.Payload)
	if err != nil {
		return nil, fmt.Errorf("recompute signature: %w", err)
	}
	if !hmac.Equal([]byte(expected), []byte(entry.Signature)) {
		return nil, domain.ErrInvalidSignature
	}

	if err := entry.Payload.ValidateForFlow(); err != nil {
		return nil, err
	}

	if entry.Payload.Age(s.now()) > s.ttl {
		return nil, domain.ErrStateTokenExpired
	}

	payload := entry.Payload
	return &payload, nil
}

// sign computes the hex HMAC-SHA256 over the token and the serialized
// payload. Covering the payload means a write into the key-value store
// cannot forge or alter trusted flow context.
func (s *stateTokenService) sign(token string, payload *domain.StatePayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(token))
	mac.Write([]byte{'.'})
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// generateStateToken returns a 256-bit cryptographically random hex token.
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
