package services

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven/mocks"
)

func TestGetSyncConfig_Defaults(t *testing.T) {
	svc := NewSyncConfigService(mocks.NewMockSyncConfigStore(), nil)

	cfg, err := svc.GetSyncConfig(context.Background())
	if err != nil {
		t.Fatalf("GetSyncConfig() error = %v", err)
	}
	if cfg != domain.DefaultSyncConfig() {
		t.Errorf("GetSyncConfig() = %+v, want defaults", cfg)
	}
}

func TestGetSyncConfig_StoredValues(t *testing.T) {
	store := mocks.NewMockSyncConfigStore()
	ctx := context.Background()
	_ = store.Set(ctx, domain.ConfigBatchSize, "10")
	_ = store.Set(ctx, domain.ConfigAutoSyncEnabled, "false")
	_ = store.Set(ctx, domain.ConfigRateLimitDelayMs, "fast")
	_ = store.Set(ctx, "legacy_key", "1")

	cfg, err := NewSyncConfigService(store, nil).GetSyncConfig(ctx)
	if err != nil {
		t.Fatalf("GetSyncConfig() error = %v", err)
	}

	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}
	if cfg.AutoSyncEnabled {
		t.Error("AutoSyncEnabled should be false")
	}
	if cfg.RateLimitDelayMs != domain.DefaultSyncConfig().RateLimitDelayMs {
		t.Errorf("invalid value should keep default, got %d", cfg.RateLimitDelayMs)
	}
}

func TestGetSyncConfig_StoreError(t *testing.T) {
	store := mocks.NewMockSyncConfigStore()
	store.GetAllFn = func() (map[string]string, error) {
		return nil, errors.New("connection refused")
	}

	_, err := NewSyncConfigService(store, nil).GetSyncConfig(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestUpdateSyncConfig(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{name: "valid int", key: domain.ConfigBatchSize, value: "25"},
		{name: "valid bool", key: domain.ConfigAutoSyncEnabled, value: "true"},
		{name: "zero delay allowed", key: domain.ConfigRateLimitDelayMs, value: "0"},
		{name: "unknown key", key: "colour", value: "blue", wantErr: domain.ErrUnknownConfigKey},
		{name: "not a number", key: domain.ConfigBatchSize, value: "many", wantErr: domain.ErrInvalidConfigValue},
		{name: "below minimum", key: domain.ConfigMaxConcurrentRequests, value: "0", wantErr: domain.ErrInvalidConfigValue},
		{name: "not a bool", key: domain.ConfigAutoSyncEnabled, value: "sometimes", wantErr: domain.ErrInvalidConfigValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockSyncConfigStore()
			svc := NewSyncConfigService(store, nil)

			err := svc.UpdateSyncConfig(context.Background(), tt.key, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("UpdateSyncConfig() error = %v, want %v", err, tt.wantErr)
				}
				if _, ok := store.Value(tt.key); ok {
					t.Error("rejected value must not be stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateSyncConfig() error = %v", err)
			}
			if got, _ := store.Value(tt.key); got != tt.value {
				t.Errorf("stored %q, want %q", got, tt.value)
			}
		})
	}
}

func TestUpdateSyncConfig_VisibleOnNextRead(t *testing.T) {
	store := mocks.NewMockSyncConfigStore()
	svc := NewSyncConfigService(store, nil)
	ctx := context.Background()

	if err := svc.UpdateSyncConfig(ctx, domain.ConfigSyncIntervalMinutes, "15"); err != nil {
		t.Fatalf("UpdateSyncConfig() error = %v", err)
	}
	cfg, _ := svc.GetSyncConfig(ctx)
	if cfg.SyncIntervalMinutes != 15 {
		t.Errorf("SyncIntervalMinutes = %d, want 15", cfg.SyncIntervalMinutes)
	}
}
