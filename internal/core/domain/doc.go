// Package domain defines the core entities of the sync agent.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Configuration: a source paired with a destination knowledge box
//   - SyncItem: one discovered unit of content at a source
//   - Content: Blob, Text or Link handed to the upload pipeline
//   - Event and LogEntry: the audit trail of cycles and items
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
