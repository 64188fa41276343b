package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure LogStore implements the interface.
var _ driven.LogStore = (*LogStore)(nil)

// LogStore is an in-memory implementation of driven.LogStore.
type LogStore struct {
	mu      sync.RWMutex
	entries []domain.LogEntry
	nextID  int64
}

// NewLogStore creates a new in-memory log store.
func NewLogStore() *LogStore {
	return &LogStore{}
}

// Save appends an entry.
func (s *LogStore) Save(_ context.Context, entry domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, entry)
	return nil
}

// List returns every entry, oldest first.
func (s *LogStore) List(_ context.Context) ([]domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LogEntry(nil), s.entries...), nil
}

// ListSince returns entries created at or after since.
func (s *LogStore) ListSince(_ context.Context, since time.Time) ([]domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LogEntry
	for _, e := range s.entries {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clear removes every entry.
func (s *LogStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// Prune removes entries created before cutoff.
func (s *LogStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}
