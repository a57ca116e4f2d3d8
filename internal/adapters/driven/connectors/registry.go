package connectors

import (
	"sync"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// Registry maps platform identifiers to connector instances. It is built
// once at process start and passed to the services that need it - there is
// deliberately no package-level registry.
type Registry struct {
	mu         sync.RWMutex
	byPlatform map[domain.PlatformID]driven.Connector
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{
		byPlatform: make(map[domain.PlatformID]driven.Connector),
	}
}

// Register registers a connector under every platform it serves.
// A later registration for the same platform replaces the earlier one.
func (r *Registry) Register(c driven.Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range c.Platforms() {
		r.byPlatform[p] = c
	}
}

// Get resolves the connector for a platform. Unknown platforms fail fast
// with domain.ErrUnknownPlatform; there is no default connector.
func (r *Registry) Get(platform domain.PlatformID) (driven.Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byPlatform[platform]
	if !ok {
		return nil, domain.ErrUnknownPlatform
	}
	return c, nil
}

// Supported returns all registered platform IDs.
func (r *Registry) Supported() []domain.PlatformID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PlatformID, 0, len(r.byPlatform))
	for p := range r.byPlatform {
		out = append(out, p)
	}
	return out
}
