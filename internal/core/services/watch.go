package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// DefaultDebounce is how long a configuration must be quiet before a
// change notification triggers a cycle.
const DefaultDebounce = 2 * time.Second

// WatchService triggers cycles for configurations whose connector pushes
// change notifications. Bursts of changes are debounced per configuration.
type WatchService struct {
	store    driven.ConfigurationStore
	factory  driven.ConnectorFactory
	syncOrch driving.SyncOrchestrator
	debounce time.Duration

	changeQueueMu sync.Mutex
	changeQueue   map[string]time.Time

	wg sync.WaitGroup
}

// NewWatchService creates a watch service. A zero debounce uses
// DefaultDebounce.
func NewWatchService(
	store driven.ConfigurationStore,
	factory driven.ConnectorFactory,
	syncOrch driving.SyncOrchestrator,
	debounce time.Duration,
) *WatchService {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &WatchService{
		store:       store,
		factory:     factory,
		syncOrch:    syncOrch,
		debounce:    debounce,
		changeQueue: make(map[string]time.Time),
	}
}

// Start watches every enabled configuration that supports it and blocks
// until ctx ends. Having nothing to watch is not an error.
func (w *WatchService) Start(ctx context.Context) error {
	configs, err := w.store.List(ctx)
	if err != nil {
		return err
	}

	watched := 0
	for id, cfg := range configs {
		if cfg.Disabled || len(cfg.FoldersToSync) == 0 {
			continue
		}
		conn, err := w.factory.Create(cfg.Connector.Name, cfg.Connector.Parameters)
		if err != nil {
			logger.Warn("watch %s: %v", id, err)
			continue
		}
		watcher, ok := conn.(driven.Watcher)
		if !ok {
			continue
		}
		changes, err := watcher.Watch(ctx, cfg.FoldersToSync)
		if err != nil {
			logger.Warn("watch %s: %v", id, err)
			continue
		}
		watched++
		w.wg.Add(1)
		go w.forward(ctx, id, changes)
	}
	logger.Info("Watching %d configurations for changes", watched)

	w.wg.Add(1)
	go w.processChangeQueue(ctx)

	<-ctx.Done()
	w.wg.Wait()
	return nil
}

func (w *WatchService) forward(ctx context.Context, id string, changes <-chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			w.queueChange(id)
		}
	}
}

// queueChange marks id as changed now.
func (w *WatchService) queueChange(id string) {
	w.changeQueueMu.Lock()
	defer w.changeQueueMu.Unlock()
	w.changeQueue[id] = time.Now()
}

func (w *WatchService) processChangeQueue(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPendingChanges(ctx)
		}
	}
}

// processPendingChanges runs a cycle for every configuration quiet for at
// least the debounce interval. A configuration hitting a running cycle
// stays queued for the next tick.
func (w *WatchService) processPendingChanges(ctx context.Context) {
	now := time.Now()
	var due []string

	w.changeQueueMu.Lock()
	for id, queuedAt := range w.changeQueue {
		if now.Sub(queuedAt) < w.debounce {
			continue
		}
		due = append(due, id)
		delete(w.changeQueue, id)
	}
	w.changeQueueMu.Unlock()

	for _, id := range due {
		logger.Info("Change detected in %s, syncing", id)
		_, err := w.syncOrch.Run(ctx, id)
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			w.requeue(id, queuedBefore(now, w.debounce))
		case err != nil:
			logger.Error("sync %s: %v", id, err)
		}
	}
}

// requeue puts id back unless a newer change arrived meanwhile.
func (w *WatchService) requeue(id string, at time.Time) {
	w.changeQueueMu.Lock()
	defer w.changeQueueMu.Unlock()
	if _, ok := w.changeQueue[id]; !ok {
		w.changeQueue[id] = at
	}
}

// queuedBefore returns a timestamp already past the debounce window.
func queuedBefore(now time.Time, debounce time.Duration) time.Time {
	return now.Add(-debounce)
}
