package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// configurationStore implements driven.ConfigurationStore. Each
// configuration is stored as a JSON document; a few columns are lifted out
// for listing.
type configurationStore struct {
	store *Store
}

var _ driven.ConfigurationStore = (*configurationStore)(nil)

// List returns every configuration keyed by id.
func (s *configurationStore) List(ctx context.Context) (map[string]domain.Configuration, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT document FROM configurations")
	if err != nil {
		return nil, fmt.Errorf("querying configurations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Configuration)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning configuration: %w", err)
		}
		cfg, err := decodeConfiguration(doc)
		if err != nil {
			return nil, err
		}
		out[cfg.ID] = *cfg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating configurations: %w", err)
	}
	return out, nil
}

// Get retrieves a configuration by id.
func (s *configurationStore) Get(ctx context.Context, id string) (*domain.Configuration, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT document FROM configurations WHERE id = ?", id)
	return scanConfiguration(row)
}

// Create stores a new configuration.
func (s *configurationStore) Create(ctx context.Context, cfg domain.Configuration) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}
	now := time.Now().UnixNano()
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO configurations (id, title, connector, knowledge_box, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cfg.ID, cfg.Title, cfg.Connector.Name, cfg.KB.KnowledgeBox, string(doc), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("inserting configuration: %w", err)
	}
	return nil
}

// Update applies patch to the stored document inside one transaction.
func (s *configurationStore) Update(
	ctx context.Context,
	id string,
	patch domain.ConfigurationPatch,
) (*domain.Configuration, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	current, err := scanConfiguration(tx.QueryRowContext(ctx, "SELECT document FROM configurations WHERE id = ?", id))
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)
	doc, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("marshalling configuration: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE configurations
		SET title = ?, connector = ?, knowledge_box = ?, document = ?, updated_at = ?
		WHERE id = ?
	`, updated.Title, updated.Connector.Name, updated.KB.KnowledgeBox, string(doc), time.Now().UnixNano(), id)
	if err != nil {
		return nil, fmt.Errorf("updating configuration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing configuration: %w", err)
	}
	return &updated, nil
}

// Delete removes a configuration.
func (s *configurationStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM configurations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting configuration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting configuration: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanConfiguration(row *sql.Row) (*domain.Configuration, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning configuration: %w", err)
	}
	return decodeConfiguration(doc)
}

func decodeConfiguration(doc string) (*domain.Configuration, error) {
	var cfg domain.Configuration
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling configuration: %w", err)
	}
	return &cfg, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
