package driven

import "context"

// SyncConfigStore persists the sync_config key/value settings
type SyncConfigStore interface {
	// GetAll returns every stored key/value pair
	GetAll(ctx context.Context) (map[string]string, error)

	// Set upserts a single key
	Set(ctx context.Context, key, value string) error
}
