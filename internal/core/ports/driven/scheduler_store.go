package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// SchedulerStore keeps task state and run history so the schedule survives
// a restart of the agent.
type SchedulerStore interface {
	// GetTask returns nil, nil for an unknown task.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask upserts by task ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	DeleteTask(ctx context.Context, taskID string) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns at most limit results, newest first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the newest keep results of every task.
	PruneHistory(ctx context.Context, keep int) error
}
