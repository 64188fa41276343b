package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Ensure ConfigurationService implements the interface.
var _ driving.ConfigurationService = (*ConfigurationService)(nil)

// ConfigurationService manages sync configurations.
type ConfigurationService struct {
	store   driven.ConfigurationStore
	factory driven.ConnectorFactory
	events  driven.EventPublisher
}

// NewConfigurationService creates a new configuration service.
// events may be nil.
func NewConfigurationService(
	store driven.ConfigurationStore,
	factory driven.ConnectorFactory,
	events driven.EventPublisher,
) *ConfigurationService {
	return &ConfigurationService{
		store:   store,
		factory: factory,
		events:  events,
	}
}

// Create validates and stores a new configuration.
func (s *ConfigurationService) Create(ctx context.Context, cfg domain.Configuration) (*domain.Configuration, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if len(cfg.FoldersToSync) > 0 {
		return nil, fmt.Errorf("%w: folders are selected after creation", domain.ErrInvalidInput)
	}
	if err := cfg.KB.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Filters.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateConnector(cfg.Connector.Name, cfg.Connector.Parameters); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Title) == "" {
		cfg.Title = cfg.Connector.Name
	}
	if def, ok := s.factory.Definition(cfg.Connector.Name); ok {
		if root, ok := def.RootFolder(cfg.Connector.Parameters); ok {
			cfg.FoldersToSync = []domain.SyncItem{root}
		}
	}
	// Runtime state always starts empty.
	cfg.OriginalIDs = nil
	cfg.LastSyncGMT = ""

	if err := s.store.Create(ctx, cfg); err != nil {
		return nil, err
	}
	s.publish(domain.EventSyncCreated, cfg.ID, cfg.KB.KnowledgeBox)
	return s.store.Get(ctx, cfg.ID)
}

// Get returns one configuration.
func (s *ConfigurationService) Get(ctx context.Context, id string) (*domain.Configuration, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.store.Get(ctx, id)
}

// List returns every configuration sorted by title, then id.
func (s *ConfigurationService) List(ctx context.Context) ([]domain.Configuration, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	stored, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	configs := make([]domain.Configuration, 0, len(stored))
	for _, cfg := range stored {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool {
		if configs[i].Title != configs[j].Title {
			return configs[i].Title < configs[j].Title
		}
		return configs[i].ID < configs[j].ID
	})
	return configs, nil
}

// ListByKnowledgeBox returns summaries of the configurations targeting kb.
func (s *ConfigurationService) ListByKnowledgeBox(ctx context.Context, kb string) ([]domain.Summary, error) {
	configs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.Summary, 0, len(configs))
	for _, cfg := range configs {
		if cfg.KB.KnowledgeBox == kb {
			summaries = append(summaries, cfg.Summarise())
		}
	}
	return summaries, nil
}

// Update validates and applies a patch.
func (s *ConfigurationService) Update(
	ctx context.Context,
	id string,
	patch domain.ConfigurationPatch,
) (*domain.Configuration, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validatePatch(*current, patch); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.publish(domain.EventSyncUpdated, id, updated.KB.KnowledgeBox)
	return updated, nil
}

// Delete removes a configuration.
func (s *ConfigurationService) Delete(ctx context.Context, id string) error {
	if s.store == nil {
		return domain.ErrNotImplemented
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(domain.EventSyncDeleted, id, current.KB.KnowledgeBox)
	return nil
}

// ListFolders lists the folders the configured source offers. Credentials
// are refreshed first, as a cycle would. Connectors without folder listing
// offer their root only.
func (s *ConfigurationService) ListFolders(ctx context.Context, id, query string) (domain.SearchResults, error) {
	if s.store == nil {
		return domain.SearchResults{}, domain.ErrNotImplemented
	}
	cfg, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.SearchResults{}, err
	}
	if def, ok := s.factory.Definition(cfg.Connector.Name); ok {
		if root, ok := def.RootFolder(cfg.Connector.Parameters); ok {
			return domain.SearchResults{Items: []domain.SyncItem{root}}, nil
		}
	}
	conn, err := s.factory.Create(cfg.Connector.Name, cfg.Connector.Parameters)
	if err != nil {
		return domain.SearchResults{}, err
	}
	conn, _, ok, err := ensureAuth(ctx, s.store, s.factory, cfg, conn)
	if err != nil {
		return domain.SearchResults{}, err
	}
	if !ok {
		return domain.SearchResults{}, domain.ErrTokenRefreshFailed
	}
	return conn.GetFolders(ctx, query)
}

// Connectors returns the connector catalogue.
func (s *ConfigurationService) Connectors() []domain.ConnectorDefinition {
	if s.factory == nil {
		return nil
	}
	return s.factory.Definitions()
}

func (s *ConfigurationService) validatePatch(current domain.Configuration, patch domain.ConfigurationPatch) error {
	if patch.Connector != nil {
		next := patch.Apply(current)
		if err := s.validateConnector(next.Connector.Name, next.Connector.Parameters); err != nil {
			return err
		}
	}
	if patch.KB != nil {
		for field, v := range map[string]*string{
			"kb.backend":      patch.KB.Backend,
			"kb.knowledgeBox": patch.KB.KnowledgeBox,
		} {
			if v != nil && strings.TrimSpace(*v) == "" {
				return fmt.Errorf("%w: %s cannot be empty", domain.ErrInvalidInput, field)
			}
		}
	}
	if err := patch.Filters.Validate(); err != nil {
		return err
	}
	if patch.FoldersToSync != nil {
		if err := domain.ValidateFolders(*patch.FoldersToSync); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConfigurationService) validateConnector(name string, params domain.Params) error {
	if s.factory == nil {
		return domain.ErrNotImplemented
	}
	if _, ok := s.factory.Definition(name); !ok {
		return fmt.Errorf("%w: connector %q", domain.ErrUnsupportedType, name)
	}
	conn, err := s.factory.Create(name, params)
	if err != nil {
		return err
	}
	if !conn.ValidateParameters(params) {
		return fmt.Errorf("%w: connector %s parameters are not valid", domain.ErrConnectorValidation, name)
	}
	return nil
}

func (s *ConfigurationService) publish(name domain.EventName, id, kb string) {
	if s.events == nil {
		return
	}
	s.events.Publish(domain.Event{Name: name, From: id, To: kb})
}
