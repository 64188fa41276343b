package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure LogRecorder implements the interface.
var _ driving.LogService = (*LogRecorder)(nil)

// LogRecorder turns events into persisted log entries and serves them back.
type LogRecorder struct {
	store driven.LogStore
}

// NewLogRecorder creates a recorder over store.
func NewLogRecorder(store driven.LogStore) *LogRecorder {
	return &LogRecorder{store: store}
}

// Handle records one event. It is meant to be subscribed to an EventBus.
func (r *LogRecorder) Handle(event domain.Event) {
	entry := EntryFromEvent(event)
	if err := r.store.Save(context.Background(), entry); err != nil {
		logger.Error("record %s: %v", event.Name, err)
	}
}

// EntryFromEvent maps an event to its log entry.
func EntryFromEvent(event domain.Event) domain.LogEntry {
	entry := domain.LogEntry{
		Level:     domain.LogLow,
		Action:    string(event.Name),
		CreatedAt: event.Time,
		Payload:   map[string]any{"from": event.From, "to": event.To},
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	switch event.Name {
	case domain.EventCycleStarted:
		entry.Message = fmt.Sprintf("Synchronization started: %d items", event.Total)
		entry.Payload["total"] = event.Total
	case domain.EventCycleFinished:
		entry.Message = fmt.Sprintf("Synchronization finished: %d processed, %d succeeded", len(event.Processed), event.SuccessCount)
		entry.Payload["processed"] = event.Processed
		entry.Payload["successCount"] = event.SuccessCount
		if event.Error != "" {
			entry.Level = domain.LogHigh
			entry.Payload["error"] = event.Error
			entry.Message += ": " + event.Error
		}
	case domain.EventItemFinished:
		entry.Message = event.Message
		entry.Payload["success"] = event.Success
		if !event.Success {
			entry.Level = domain.LogMedium
		}
	case domain.EventSyncCreated:
		entry.Message = "Sync created"
	case domain.EventSyncUpdated:
		entry.Message = "Sync updated"
	case domain.EventSyncDeleted:
		entry.Message = "Sync deleted"
	default:
		entry.Message = event.Message
	}
	return entry
}

// List returns every log entry.
func (r *LogRecorder) List(ctx context.Context) ([]domain.LogEntry, error) {
	return r.store.List(ctx)
}

// ListSince returns entries created at or after since.
func (r *LogRecorder) ListSince(ctx context.Context, since time.Time) ([]domain.LogEntry, error) {
	return r.store.ListSince(ctx, since)
}

// Clear removes every entry.
func (r *LogRecorder) Clear(ctx context.Context) error {
	return r.store.Clear(ctx)
}

// Prune drops entries older than retention.
func (r *LogRecorder) Prune(ctx context.Context, retention time.Duration) (int, error) {
	return r.store.Prune(ctx, time.Now().Add(-retention))
}
