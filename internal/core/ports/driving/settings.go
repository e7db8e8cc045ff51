package driving

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// SyncConfigService reads and updates the persisted sync settings
type SyncConfigService interface {
	// GetSyncConfig returns the current settings, with defaults for missing or invalid keys
	GetSyncConfig(ctx context.Context) (domain.SyncConfig, error)

	// UpdateSyncConfig validates and stores a single key.
	// Takes effect on the next orchestration run.
	UpdateSyncConfig(ctx context.Context, key, value string) error
}
