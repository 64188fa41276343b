package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// LogService reads and clears the activity log.
type LogService interface {
	List(ctx context.Context) ([]domain.LogEntry, error)
	ListSince(ctx context.Context, since time.Time) ([]domain.LogEntry, error)
	Clear(ctx context.Context) error
}
