package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// LogPruner drops old log entries.
type LogPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int, error)
}

// Scheduler runs the recurring tasks: the sync-all cycle and log pruning.
// Task state lives in the scheduler store so intervals survive restarts.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	syncOrch driving.SyncOrchestrator
	pruner   LogPruner
	tick     time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// inflight holds ids of tasks currently executing.
	inflight map[string]bool
}

// NewScheduler creates a scheduler with configuration.
// pruner may be nil, in which case the prune task does nothing.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
	pruner LogPruner,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		syncOrch: syncOrch,
		pruner:   pruner,
		tick:     time.Minute,
		inflight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()
	return nil
}

var taskNames = map[string]string{
	domain.TaskIDSyncAll:  "Sync All",
	domain.TaskIDLogPrune: "Log Prune",
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDSyncAll, domain.TaskIDLogPrune} {
		taskCfg := s.config.GetTaskConfig(id)
		if err := s.ensureTask(ctx, id, taskNames[id], taskCfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store. A fresh sync task
// is due immediately so serve starts with a cycle.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  now.Add(cfg.Interval),
		}
		if id == domain.TaskIDSyncAll {
			task.NextRun = now
		}
	} else if task.Interval != cfg.Interval {
		task.Interval = cfg.Interval
		// Recalculate next run from now
		task.NextRun = now.Add(cfg.Interval)
	}
	task.Enabled = cfg.Enabled && s.config.Enabled

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled {
			continue
		}
		if !task.NextRun.After(now) {
			s.runTask(ctx, &task)
		}
	}
}

func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) unclaim(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// runTask executes a single task in the background. A task still running
// from a previous tick is not started again.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	if !s.claim(task.ID) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unclaim(task.ID)

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDSyncAll:
			result.ItemsProcessed, err = s.runSyncAll(ctx)
		case domain.TaskIDLogPrune:
			result.ItemsProcessed, err = s.runLogPrune(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Error("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Error("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		// Keep the last 100 results per task
		if pruneErr := s.store.PruneHistory(ctx, 100); pruneErr != nil {
			logger.Error("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runSyncAll runs one cycle over every configuration and returns the
// number of items delivered.
func (s *Scheduler) runSyncAll(ctx context.Context) (int, error) {
	if s.syncOrch == nil {
		return 0, nil
	}
	reports, err := s.syncOrch.RunAll(ctx)
	items := 0
	for _, r := range reports {
		items += r.SuccessCount
	}
	return items, err
}

func (s *Scheduler) runLogPrune(ctx context.Context) (int, error) {
	if s.pruner == nil {
		return 0, nil
	}
	return s.pruner.Prune(ctx, domain.LogRetention)
}
