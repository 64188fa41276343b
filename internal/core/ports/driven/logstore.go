package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// LogStore persists the agent activity log.
type LogStore interface {
	// Save appends an entry.
	Save(ctx context.Context, entry domain.LogEntry) error

	// List returns every entry, oldest first.
	List(ctx context.Context) ([]domain.LogEntry, error)

	// ListSince returns entries created at or after since, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]domain.LogEntry, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Prune removes entries created before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
