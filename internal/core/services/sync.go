package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// Messages reported on failed cycles.
const (
	msgRefreshFailed = "Cannot refresh OAuth token"
	unknownKB        = "Unknown kb"
)

// SyncOrchestrator runs sync cycles: auth guard, full or incremental
// enumeration per folder, filtering, sequential delivery, then persistence
// of the new watermark, folder statuses and known ids.
type SyncOrchestrator struct {
	store     driven.ConfigurationStore
	factory   driven.ConnectorFactory
	uploader  *Uploader
	events    driven.EventPublisher
	itemDelay time.Duration
	now       func() time.Time

	// running guards against overlapping RunAll/Run invocations.
	running sync.Mutex
	busy    bool
	busyMu  sync.RWMutex
}

// SyncOption configures a SyncOrchestrator.
type SyncOption func(*SyncOrchestrator)

// WithItemDelay sets the pause after every delivered item and between
// configurations.
func WithItemDelay(d time.Duration) SyncOption {
	return func(o *SyncOrchestrator) { o.itemDelay = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SyncOption {
	return func(o *SyncOrchestrator) { o.now = now }
}

// NewSyncOrchestrator creates a new sync orchestrator.
// events may be nil.
func NewSyncOrchestrator(
	store driven.ConfigurationStore,
	factory driven.ConnectorFactory,
	uploader *Uploader,
	events driven.EventPublisher,
	opts ...SyncOption,
) *SyncOrchestrator {
	o := &SyncOrchestrator{
		store:     store,
		factory:   factory,
		uploader:  uploader,
		events:    events,
		itemDelay: domain.DefaultItemDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Running reports whether a cycle is in progress.
func (o *SyncOrchestrator) Running() bool {
	o.busyMu.RLock()
	defer o.busyMu.RUnlock()
	return o.busy
}

func (o *SyncOrchestrator) acquire() bool {
	if !o.running.TryLock() {
		return false
	}
	o.busyMu.Lock()
	o.busy = true
	o.busyMu.Unlock()
	return true
}

func (o *SyncOrchestrator) release() {
	o.busyMu.Lock()
	o.busy = false
	o.busyMu.Unlock()
	o.running.Unlock()
}

// RunAll runs a cycle for every enabled configuration, one after another.
// Only store failures are returned; cycle failures are in the reports.
func (o *SyncOrchestrator) RunAll(ctx context.Context) ([]domain.CycleReport, error) {
	if !o.acquire() {
		return nil, domain.ErrSyncInProgress
	}
	defer o.release()

	configs, err := o.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}

	ordered := make([]domain.Configuration, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Disabled {
			ordered = append(ordered, cfg)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var reports []domain.CycleReport
	var errs []error
	for i := range ordered {
		if i > 0 && !o.pause(ctx) {
			errs = append(errs, ctx.Err())
			break
		}
		report, err := o.cycle(ctx, &ordered[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", ordered[i].ID, err))
			continue
		}
		reports = append(reports, *report)
	}

	logger.Info("Finished %d of %d configurations", len(reports), len(ordered))
	return reports, errors.Join(errs...)
}

// Run runs a cycle for one configuration.
func (o *SyncOrchestrator) Run(ctx context.Context, configurationID string) (*domain.CycleReport, error) {
	if !o.acquire() {
		return nil, domain.ErrSyncInProgress
	}
	defer o.release()

	cfg, err := o.store.Get(ctx, configurationID)
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	return o.cycle(ctx, cfg)
}

// cycle runs one pass for cfg.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) cycle(ctx context.Context, cfg *domain.Configuration) (*domain.CycleReport, error) {
	report := &domain.CycleReport{ConfigurationID: cfg.ID}

	// 1. Skip check
	if cfg.Disabled {
		report.Skipped = true
		return report, nil
	}
	started := o.now()
	logger.Info("Syncing %s (%s)", cfg.ID, cfg.Connector.Name)

	// 2. Connector
	conn, err := o.factory.Create(cfg.Connector.Name, cfg.Connector.Parameters)
	if err != nil {
		report.Error = err.Error()
		o.publishFinished(cfg, report)
		return report, nil
	}

	// 3. Auth guard
	conn, cfg, ok, err := ensureAuth(ctx, o.store, o.factory, cfg, conn)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Error("Cannot refresh token for %s", cfg.ID)
		report.Error = msgRefreshFailed
		o.publishFinished(cfg, report)
		return report, nil
	}

	// 4. Enumeration
	listing := o.enumerate(ctx, cfg, conn)
	report.Total = len(listing.items)
	report.Error = listing.errorString()
	o.publish(domain.Event{
		Name:  domain.EventCycleStarted,
		From:  cfg.ID,
		To:    kbName(cfg),
		Total: report.Total,
	})

	// 5. Nothing could be listed: leave the configuration untouched
	if listing.allFailed() {
		o.publishFinished(cfg, report)
		return report, nil
	}

	// 6-7. Filter and deliver
	var uploads, deletes []string
	allow := cfg.Filters.Matcher()
	for _, item := range listing.items {
		if !allow(item) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := o.uploader.Deliver(ctx, cfg, conn, item)
		o.publish(domain.Event{
			Name:    domain.EventItemFinished,
			From:    cfg.ID,
			To:      kbName(cfg),
			ItemID:  item.OriginalID,
			Success: out.Success,
			Message: out.Message,
		})
		if out.Success {
			report.SuccessCount++
			if out.Action == ActionDelete {
				deletes = append(deletes, out.ID)
			} else {
				uploads = append(uploads, out.ID)
			}
		}
		o.pause(ctx)
	}
	report.Processed = uploads
	report.Deleted = deletes

	// 8. Finalize
	patch := domain.ConfigurationPatch{
		RemoveOriginalIDs: deletes,
		AddOriginalIDs:    uploads,
	}
	if listing.watermarkAdvances() {
		patch.LastSyncGMT = domain.Ptr(domain.NowGMT(started))
	}
	if listing.fullOK {
		patch.MarkFoldersUploaded = folderIDs(listing.pending)
	}
	if _, err := o.store.Update(ctx, cfg.ID, patch); err != nil {
		return nil, fmt.Errorf("save configuration: %w", err)
	}

	o.publishFinished(cfg, report)
	logger.Info("Synced %s: %d uploaded, %d deleted, %d ok", cfg.ID, len(uploads), len(deletes), report.SuccessCount)
	return report, nil
}

// listing is the merged result of the two enumeration calls.
type listing struct {
	items []domain.SyncItem

	pending, uploaded []domain.SyncItem
	fullOK, deltaOK   bool
	errs              []string
}

func (l *listing) allFailed() bool {
	tried := len(l.pending) > 0 || len(l.uploaded) > 0
	return tried && !l.fullOK && !l.deltaOK
}

// watermarkAdvances reports whether the incremental boundary may move:
// the delta call succeeded, or no folder is tracked incrementally yet.
func (l *listing) watermarkAdvances() bool {
	return l.deltaOK || len(l.uploaded) == 0
}

func (l *listing) errorString() string {
	return strings.Join(l.errs, ". ")
}

// enumerate runs the full and incremental calls concurrently and merges
// their items with mergeListings.
func (o *SyncOrchestrator) enumerate(ctx context.Context, cfg *domain.Configuration, conn driven.Connector) *listing {
	l := &listing{}
	l.pending, l.uploaded = cfg.PartitionFolders()

	var delta, full domain.SearchResults
	var deltaErr, fullErr error
	var wg sync.WaitGroup

	if len(l.uploaded) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			delta, deltaErr = conn.GetLastModified(ctx, cfg.Since(), l.uploaded, cfg.OriginalIDs)
		}()
	}
	if len(l.pending) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			full, fullErr = conn.GetFilesFromFolders(ctx, l.pending)
		}()
	}
	wg.Wait()

	if len(l.uploaded) > 0 {
		if deltaErr != nil {
			l.errs = append(l.errs, deltaErr.Error())
		} else {
			l.deltaOK = true
		}
	}
	if len(l.pending) > 0 {
		if fullErr != nil {
			l.errs = append(l.errs, fullErr.Error())
		} else {
			l.fullOK = true
		}
	}

	l.items = mergeListings(delta.Items, full.Items)
	return l
}

// mergeListings keeps the first copy of each id, except that a live copy
// replaces a deletion. A file moved into a newly selected folder is reported
// gone by the delta and present by the full listing.
func mergeListings(batches ...[]domain.SyncItem) []domain.SyncItem {
	var items []domain.SyncItem
	index := make(map[string]int)
	for _, batch := range batches {
		for _, item := range batch {
			if item.IsFolder {
				continue
			}
			if i, dup := index[item.OriginalID]; dup {
				if items[i].Deleted && !item.Deleted {
					items[i] = item
				}
				continue
			}
			index[item.OriginalID] = len(items)
			items = append(items, item)
		}
	}
	return items
}

func (o *SyncOrchestrator) publishFinished(cfg *domain.Configuration, report *domain.CycleReport) {
	processed := append(append([]string(nil), report.Processed...), report.Deleted...)
	o.publish(domain.Event{
		Name:         domain.EventCycleFinished,
		From:         cfg.ID,
		To:           kbName(cfg),
		Total:        report.Total,
		Processed:    processed,
		SuccessCount: report.SuccessCount,
		Error:        report.Error,
	})
}

func (o *SyncOrchestrator) publish(event domain.Event) {
	if o.events == nil {
		return
	}
	event.Time = o.now().UTC()
	o.events.Publish(event)
}

// pause waits for the item delay. It returns false if ctx ends first.
func (o *SyncOrchestrator) pause(ctx context.Context) bool {
	if o.itemDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(o.itemDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func folderIDs(folders []domain.SyncItem) []string {
	ids := make([]string, len(folders))
	for i, f := range folders {
		ids[i] = f.OriginalID
	}
	return ids
}

func kbName(cfg *domain.Configuration) string {
	if cfg.KB.KnowledgeBox == "" {
		return unknownKB
	}
	return cfg.KB.KnowledgeBox
}
