package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// --- Mock implementations for scheduler testing ---

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	// Return a copy
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	if len(results) > limit {
		results = results[len(results)-limit:]
	}
	return results, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	return m.pruneErr
}

// mockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type mockSyncOrchestrator struct {
	mu         sync.Mutex
	runAllHits int
	reports    []domain.CycleReport
	runAllErr  error
}

func (m *mockSyncOrchestrator) RunAll(_ context.Context) ([]domain.CycleReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runAllHits++
	return m.reports, m.runAllErr
}

func (m *mockSyncOrchestrator) Run(_ context.Context, id string) (*domain.CycleReport, error) {
	return &domain.CycleReport{ConfigurationID: id}, nil
}

func (m *mockSyncOrchestrator) Running() bool { return false }

func (m *mockSyncOrchestrator) hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runAllHits
}

// mockPruner implements LogPruner for testing.
type mockPruner struct {
	retention time.Duration
	removed   int
}

func (m *mockPruner) Prune(_ context.Context, retention time.Duration) (int, error) {
	m.retention = retention
	return m.removed, nil
}

// Ensure mocks implement interfaces
var _ driven.SchedulerStore = (*mockSchedulerStore)(nil)
var _ driving.SyncOrchestrator = (*mockSyncOrchestrator)(nil)

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()
	syncOrch := &mockSyncOrchestrator{}

	scheduler := NewScheduler(config, store, syncOrch, nil)

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
	assert.Equal(t, time.Minute, scheduler.tick)
}

func TestScheduler_StartRunsSyncImmediately(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()
	syncOrch := &mockSyncOrchestrator{}

	scheduler := NewScheduler(config, store, syncOrch, nil)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	assert.Eventually(t, func() bool { return syncOrch.hits() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, scheduler.Stop())
	wg.Wait()
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), &mockSyncOrchestrator{}, nil)

	// Stop without starting should be safe
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_DoubleStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), &mockSyncOrchestrator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// Second start should return immediately (already running)
	err := scheduler.Start(context.Background())
	assert.NoError(t, err)

	cancel()
	scheduler.Stop() //nolint:errcheck
	wg.Wait()
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	store := newMockSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSyncOrchestrator{}, nil)

	ctx := context.Background()
	require.NoError(t, scheduler.initialiseTasks(ctx))

	syncTask, err := store.GetTask(ctx, domain.TaskIDSyncAll)
	require.NoError(t, err)
	require.NotNil(t, syncTask)
	assert.Equal(t, "Sync All", syncTask.Name)
	assert.True(t, syncTask.Enabled)
	assert.False(t, syncTask.NextRun.After(time.Now()), "sync is due on first start")

	pruneTask, err := store.GetTask(ctx, domain.TaskIDLogPrune)
	require.NoError(t, err)
	require.NotNil(t, pruneTask)
	assert.Equal(t, 24*time.Hour, pruneTask.Interval)
	assert.True(t, pruneTask.NextRun.After(time.Now()))
}

func TestScheduler_InitialiseTasks_MasterSwitch(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	config.Enabled = false
	store := newMockSchedulerStore()
	scheduler := NewScheduler(config, store, &mockSyncOrchestrator{}, nil)

	ctx := context.Background()
	require.NoError(t, scheduler.initialiseTasks(ctx))

	task, err := store.GetTask(ctx, domain.TaskIDSyncAll)
	require.NoError(t, err)
	assert.False(t, task.Enabled)
}

func TestScheduler_EnsureTask_UpdateInterval(t *testing.T) {
	store := newMockSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSyncOrchestrator{}, nil)
	ctx := context.Background()

	taskCfg := domain.TaskConfig{
		Enabled:  true,
		Interval: 1 * time.Hour,
	}
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg))

	taskCfg.Interval = 2 * time.Hour
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg))

	task, err := store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, task.Interval)
}

func TestScheduler_RunSyncAll_CountsDeliveredItems(t *testing.T) {
	syncOrch := &mockSyncOrchestrator{reports: []domain.CycleReport{
		{ConfigurationID: "a", SuccessCount: 3},
		{ConfigurationID: "b", SuccessCount: 2},
	}}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), syncOrch, nil)

	items, err := scheduler.runSyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, items)
	assert.Equal(t, 1, syncOrch.hits())
}

func TestScheduler_RunSyncAll_NilOrchestrator(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil)

	_, err := scheduler.runSyncAll(context.Background())
	require.NoError(t, err)
}

func TestScheduler_RunLogPrune(t *testing.T) {
	pruner := &mockPruner{removed: 7}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, pruner)

	removed, err := scheduler.runLogPrune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, removed)
	assert.Equal(t, domain.LogRetention, pruner.retention)
}

func TestScheduler_CheckAndRunDueTasks(t *testing.T) {
	store := newMockSchedulerStore()
	syncOrch := &mockSyncOrchestrator{runAllErr: errors.New("store down")}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, syncOrch, nil)
	ctx := context.Background()

	dueTask := &domain.ScheduledTask{
		ID:       domain.TaskIDSyncAll,
		Name:     "Sync All",
		Interval: 1 * time.Hour,
		NextRun:  time.Now().Add(-1 * time.Minute), // Already past due
		Enabled:  true,
	}
	require.NoError(t, store.SaveTask(ctx, dueTask))

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	assert.Equal(t, 1, syncOrch.hits())
	task, err := store.GetTask(ctx, domain.TaskIDSyncAll)
	require.NoError(t, err)
	assert.Equal(t, "store down", task.LastError)
	assert.True(t, task.NextRun.After(time.Now().Add(59*time.Minute)))

	history, err := store.GetTaskHistory(ctx, domain.TaskIDSyncAll, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
}

func TestScheduler_SkipsTaskStillRunning(t *testing.T) {
	store := newMockSchedulerStore()
	syncOrch := &mockSyncOrchestrator{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, syncOrch, nil)

	require.True(t, scheduler.claim(domain.TaskIDSyncAll))
	scheduler.runTask(context.Background(), &domain.ScheduledTask{ID: domain.TaskIDSyncAll, Enabled: true})
	scheduler.wg.Wait()

	assert.Equal(t, 0, syncOrch.hits())
	scheduler.unclaim(domain.TaskIDSyncAll)
}

func TestScheduler_RunTask_UnknownTaskID(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil)

	task := &domain.ScheduledTask{
		ID:      "unknown-task",
		Name:    "Unknown",
		Enabled: true,
	}

	// This should just log and return, not panic
	scheduler.runTask(context.Background(), task)
	scheduler.wg.Wait()
}
