package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// ConfigurationStore persists sync configurations.
type ConfigurationStore interface {
	// List returns every configuration keyed by id.
	List(ctx context.Context) (map[string]domain.Configuration, error)

	// Get returns one configuration or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Configuration, error)

	// Create stores a new configuration. Returns domain.ErrAlreadyExists
	// when the id is taken.
	Create(ctx context.Context, cfg domain.Configuration) error

	// Update applies patch to the latest stored state atomically and
	// returns the result. Returns domain.ErrNotFound for unknown ids.
	Update(ctx context.Context, id string, patch domain.ConfigurationPatch) (*domain.Configuration, error)

	// Delete removes a configuration. Returns domain.ErrNotFound for
	// unknown ids.
	Delete(ctx context.Context, id string) error
}
