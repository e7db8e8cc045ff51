package postgres

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncConfigStore = (*SyncConfigStore)(nil)

// SyncConfigStore implements driven.SyncConfigStore on the sync_config key/value table
type SyncConfigStore struct {
	db *DB
}

// NewSyncConfigStore creates a new SyncConfigStore
func NewSyncConfigStore(db *DB) *SyncConfigStore {
	return &SyncConfigStore{db: db}
}

// GetAll returns every stored key/value pair
func (s *SyncConfigStore) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM sync_config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}

// Set creates or replaces a single key
func (s *SyncConfigStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO sync_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}
