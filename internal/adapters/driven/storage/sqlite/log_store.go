package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// logStore implements driven.LogStore. Timestamps are stored as unix
// nanoseconds so range queries compare numerically.
type logStore struct {
	store *Store
}

var _ driven.LogStore = (*logStore)(nil)

// Save appends an entry.
func (s *logStore) Save(ctx context.Context, entry domain.LogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	var payload any
	if len(entry.Payload) > 0 {
		data, err := json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		payload = string(data)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO logs (level, action, message, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(entry.Level), entry.Action, entry.Message, payload, entry.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

// List returns every entry, oldest first.
func (s *logStore) List(ctx context.Context) ([]domain.LogEntry, error) {
	return s.query(ctx, `
		SELECT id, level, action, message, payload, created_at
		FROM logs ORDER BY created_at, id
	`)
}

// ListSince returns entries created at or after since, oldest first.
func (s *logStore) ListSince(ctx context.Context, since time.Time) ([]domain.LogEntry, error) {
	return s.query(ctx, `
		SELECT id, level, action, message, payload, created_at
		FROM logs WHERE created_at >= ? ORDER BY created_at, id
	`, since.UnixNano())
}

// Clear removes every entry.
func (s *logStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM logs"); err != nil {
		return fmt.Errorf("clearing logs: %w", err)
	}
	return nil
}

// Prune removes entries created before cutoff.
func (s *logStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM logs WHERE created_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning logs: %w", err)
	}
	return int(n), nil
}

func (s *logStore) query(ctx context.Context, query string, args ...any) ([]domain.LogEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.LogEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			entry   domain.LogEntry
			level   string
			payload sql.NullString
			created int64
		)
		if err := rows.Scan(&entry.ID, &level, &entry.Action, &entry.Message, &payload, &created); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		entry.Level = domain.LogLevel(level)
		entry.CreatedAt = time.Unix(0, created)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("unmarshalling payload: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return entries, nil
}
