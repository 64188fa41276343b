package driving

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// SyncOrchestrator runs sync cycles. Both entry points return when the
// cycle has completed; overlapping calls fail with domain.ErrSyncInProgress.
type SyncOrchestrator interface {
	// RunAll runs a cycle for every enabled configuration, one after another.
	RunAll(ctx context.Context) ([]domain.CycleReport, error)

	// Run runs a cycle for one configuration.
	Run(ctx context.Context, configurationID string) (*domain.CycleReport, error)

	// Running reports whether a cycle is in progress.
	Running() bool
}
