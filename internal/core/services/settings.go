package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
)

// Ensure syncConfigService implements SyncConfigService
var _ driving.SyncConfigService = (*syncConfigService)(nil)

// syncConfigService implements the SyncConfigService interface
type syncConfigService struct {
	store  driven.SyncConfigStore
	logger *slog.Logger
}

// NewSyncConfigService creates a new SyncConfigService
func NewSyncConfigService(store driven.SyncConfigStore, logger *slog.Logger) driving.SyncConfigService {
	if logger == nil {
		logger = slog.Default()
	}
	return &syncConfigService{
		store:  store,
		logger: logger,
	}
}

// GetSyncConfig returns the stored settings. Missing or invalid keys keep their defaults.
func (s *syncConfigService) GetSyncConfig(ctx context.Context) (domain.SyncConfig, error) {
	values, err := s.store.GetAll(ctx)
	if err != nil {
		return domain.SyncConfig{}, fmt.Errorf("failed to load sync config: %w", err)
	}

	for key, value := range values {
		if err := domain.ValidateConfigValue(key, value); err != nil && domain.IsKnownConfigKey(key) {
			s.logger.Warn("ignoring invalid sync config value", "key", key, "value", value, "error", err)
		}
	}

	return domain.ParseSyncConfig(values), nil
}

// UpdateSyncConfig validates and stores a single key
func (s *syncConfigService) UpdateSyncConfig(ctx context.Context, key, value string) error {
	if err := domain.ValidateConfigValue(key, value); err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save sync config %s: %w", key, err)
	}
	s.logger.Info("sync config updated", "key", key, "value", value)
	return nil
}
