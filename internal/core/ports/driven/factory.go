package driven

import "github.com/custodia-labs/sercha-sync/internal/core/domain"

// ConnectorBuilder creates a Connector from its parameters.
type ConnectorBuilder func(params domain.Params) (Connector, error)

// ConnectorFactory maps connector names to variants.
type ConnectorFactory interface {
	// Create builds the named connector with params.
	// Returns domain.ErrUnsupportedType if the name is unknown.
	Create(name string, params domain.Params) (Connector, error)

	// Definition returns the catalogue entry for name.
	Definition(name string) (domain.ConnectorDefinition, bool)

	// Definitions returns every registered connector, sorted by name.
	Definitions() []domain.ConnectorDefinition
}
