package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateTokenStore = (*StateTokenStore)(nil)

// statePrefix namespaces OAuth state entries in Redis
const statePrefix = "authhub:oauth_state:"

// StateTokenStore implements driven.StateTokenStore using Redis.
// Entries expire via Redis TTL; single-use consumption relies on GETDEL
// so two racing callbacks can never both see the same state.
type StateTokenStore struct {
	client *redis.Client
}

// NewStateTokenStore creates a new Redis-backed StateTokenStore
func NewStateTokenStore(client *redis.Client) *StateTokenStore {
	return &StateTokenStore{client: client}
}

// Save stores a state entry with TTL derived from ExpiresAt
func (s *StateTokenStore) Save(ctx context.Context, state *driven.StateToken) error {
	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		// Already expired, nothing to persist
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state token: %w", err)
	}

	if err := s.client.Set(ctx, statePrefix+state.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save state token: %w", err)
	}
	return nil
}

// GetAndDelete atomically consumes a state entry.
// Returns nil, nil when the token is unknown or already consumed.
func (s *StateTokenStore) GetAndDelete(ctx context.Context, token string) (*driven.StateToken, error) {
	data, err := s.client.GetDel(ctx, statePrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume state token: %w", err)
	}

	var state driven.StateToken
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state token: %w", err)
	}
	return &state, nil
}

// Cleanup is a no-op: Redis evicts expired entries by TTL.
func (s *StateTokenStore) Cleanup(ctx context.Context) error { return nil }
