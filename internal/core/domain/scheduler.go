package domain

import "time"

// ScheduledTask is the persisted state of one recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	// LastError is empty after a successful run.
	LastError string
}

// TaskResult records a single run of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts items delivered by a sync-all run.
	ItemsProcessed int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig enables a task and sets its period.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the zero TaskConfig for an unconfigured task.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig runs sync-all every DefaultSyncInterval and prunes
// the activity log daily.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDSyncAll: {
				Enabled:  true,
				Interval: DefaultSyncInterval,
			},
			TaskIDLogPrune: {
				Enabled:  true,
				Interval: 24 * time.Hour,
			},
		},
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDSyncAll  = "sync-all"
	TaskIDLogPrune = "log-prune"
)

// LogRetention is how long recorded log entries are kept by the prune task.
const LogRetention = 30 * 24 * time.Hour
