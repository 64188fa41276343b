package driving

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// ConfigurationService manages sync configurations.
type ConfigurationService interface {
	// Create validates and stores a new configuration. An empty id is
	// generated.
	Create(ctx context.Context, cfg domain.Configuration) (*domain.Configuration, error)

	// Get returns one configuration.
	Get(ctx context.Context, id string) (*domain.Configuration, error)

	// List returns every configuration sorted by title.
	List(ctx context.Context) ([]domain.Configuration, error)

	// ListByKnowledgeBox returns summaries of the configurations targeting kb.
	ListByKnowledgeBox(ctx context.Context, kb string) ([]domain.Summary, error)

	// Update validates and applies a patch.
	Update(ctx context.Context, id string, patch domain.ConfigurationPatch) (*domain.Configuration, error)

	// Delete removes a configuration.
	Delete(ctx context.Context, id string) error

	// ListFolders refreshes auth if needed, then lists the source folders.
	ListFolders(ctx context.Context, id, query string) (domain.SearchResults, error)

	// Connectors returns the connector catalogue.
	Connectors() []domain.ConnectorDefinition
}
