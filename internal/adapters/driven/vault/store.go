package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SecretStore = (*Store)(nil)

// secretPrefix namespaces sealed credentials in Redis
const secretPrefix = "authhub:vault:"

// Store implements driven.SecretStore on Redis, holding only sealed blobs.
// Rows elsewhere reference secrets by name; the plaintext credential never
// leaves this package unencrypted at rest.
type Store struct {
	client *redis.Client
	cipher *CredentialCipher
}

// NewStore creates a Redis-backed secret store sealing with the given cipher.
func NewStore(client *redis.Client, cipher *CredentialCipher) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cipher == nil {
		return nil, errors.New("credential cipher is required")
	}
	return &Store{client: client, cipher: cipher}, nil
}

// Store creates a new named secret. Fails with ErrAlreadyExists when the
// name is taken; callers that want overwrite semantics use Update.
func (s *Store) Store(ctx context.Context, name string, cred *domain.Credential) error {
	blob, err := s.cipher.Seal(cred)
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}

	ok, err := s.client.SetNX(ctx, secretPrefix+name, blob, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: secret %s", domain.ErrAlreadyExists, name)
	}
	return nil
}

// Get retrieves and unseals a named secret.
func (s *Store) Get(ctx context.Context, name string) (*domain.Credential, error) {
	blob, err := s.client.Get(ctx, secretPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: secret %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}

	cred, err := s.cipher.Open(blob)
	if err != nil {
		return nil, fmt.Errorf("unseal secret %s: %w", name, err)
	}
	return cred, nil
}

// Update replaces an existing secret in place, keeping the same name so
// references in relational rows stay valid.
func (s *Store) Update(ctx context.Context, name string, cred *domain.Credential) error {
	blob, err := s.cipher.Seal(cred)
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}

	ok, err := s.client.SetXX(ctx, secretPrefix+name, blob, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: secret %s", domain.ErrNotFound, name)
	}
	return nil
}

// Delete removes a named secret. Deleting a missing secret is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, secretPrefix+name).Err(); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
