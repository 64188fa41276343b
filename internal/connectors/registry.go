package connectors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/connectors/confluence"
	"github.com/custodia-labs/sercha-sync/internal/connectors/dropbox"
	"github.com/custodia-labs/sercha-sync/internal/connectors/folder"
	"github.com/custodia-labs/sercha-sync/internal/connectors/github"
	"github.com/custodia-labs/sercha-sync/internal/connectors/google/drive"
	"github.com/custodia-labs/sercha-sync/internal/connectors/onedrive"
	"github.com/custodia-labs/sercha-sync/internal/connectors/rss"
	"github.com/custodia-labs/sercha-sync/internal/connectors/sharepoint"
	"github.com/custodia-labs/sercha-sync/internal/connectors/sitefinity"
	"github.com/custodia-labs/sercha-sync/internal/connectors/sitemap"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ConnectorFactory = (*Registry)(nil)

type entry struct {
	def   domain.ConnectorDefinition
	build driven.ConnectorBuilder
}

// Registry maps connector names to their definitions and builders.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry returns a registry holding every built-in connector. opts are
// passed to each constructor.
func NewRegistry(opts ...base.Option) *Registry {
	r := &Registry{entries: make(map[string]entry)}

	r.Register(folder.Definition, builder(folder.New, opts))
	r.Register(drive.Definition, builder(drive.New, opts))
	r.Register(dropbox.Definition, builder(dropbox.New, opts))
	r.Register(onedrive.Definition, builder(onedrive.New, opts))
	r.Register(sharepoint.Definition, builder(sharepoint.New, opts))
	r.Register(confluence.Definition, builder(confluence.New, opts))
	r.Register(rss.Definition, builder(rss.New, opts))
	r.Register(sitemap.Definition, builder(sitemap.New, opts))
	r.Register(sitefinity.Definition, builder(sitefinity.New, opts))
	r.Register(github.Definition, builder(github.New, opts))

	return r
}

// builder adapts a typed constructor to a driven.ConnectorBuilder.
func builder[C driven.Connector](
	newFn func(domain.Params, ...base.Option) (C, error),
	opts []base.Option,
) driven.ConnectorBuilder {
	return func(params domain.Params) (driven.Connector, error) {
		c, err := newFn(params, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Register adds or replaces the connector named by def.Name.
func (r *Registry) Register(def domain.ConnectorDefinition, build driven.ConnectorBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[def.Name] = entry{def: def, build: build}
}

// Create builds the named connector with params.
func (r *Registry) Create(name string, params domain.Params) (driven.Connector, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connector %q: %w", name, domain.ErrUnsupportedType)
	}
	c, err := e.build(params.Clone())
	if err != nil {
		return nil, fmt.Errorf("create connector %q: %w", name, err)
	}
	return c, nil
}

// Definition returns the catalogue entry for name.
func (r *Registry) Definition(name string) (domain.ConnectorDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.def, ok
}

// Definitions returns every registered connector sorted by name.
func (r *Registry) Definitions() []domain.ConnectorDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]domain.ConnectorDefinition, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, e.def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
