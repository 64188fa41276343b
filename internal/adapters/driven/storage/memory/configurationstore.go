package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure ConfigurationStore implements the interface.
var _ driven.ConfigurationStore = (*ConfigurationStore)(nil)

// ConfigurationStore is an in-memory implementation of driven.ConfigurationStore.
type ConfigurationStore struct {
	mu      sync.RWMutex
	configs map[string]domain.Configuration
}

// NewConfigurationStore creates a new in-memory configuration store.
func NewConfigurationStore() *ConfigurationStore {
	return &ConfigurationStore{
		configs: make(map[string]domain.Configuration),
	}
}

// List returns every configuration keyed by id.
func (s *ConfigurationStore) List(_ context.Context) (map[string]domain.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Configuration, len(s.configs))
	for id, cfg := range s.configs {
		out[id] = domain.ConfigurationPatch{}.Apply(cfg)
	}
	return out, nil
}

// Get retrieves a configuration by id.
func (s *ConfigurationStore) Get(_ context.Context, id string) (*domain.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := domain.ConfigurationPatch{}.Apply(cfg)
	return &out, nil
}

// Create stores a new configuration.
func (s *ConfigurationStore) Create(_ context.Context, cfg domain.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.configs[cfg.ID] = domain.ConfigurationPatch{}.Apply(cfg)
	return nil
}

// Update applies patch under the store lock.
func (s *ConfigurationStore) Update(_ context.Context, id string, patch domain.ConfigurationPatch) (*domain.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	updated := patch.Apply(cfg)
	s.configs[id] = updated
	out := domain.ConfigurationPatch{}.Apply(updated)
	return &out, nil
}

// Delete removes a configuration.
func (s *ConfigurationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.configs, id)
	return nil
}
