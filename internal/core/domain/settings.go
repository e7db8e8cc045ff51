package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Sync config keys as persisted in the sync_config table
const (
	ConfigRateLimitDelayMs      = "rate_limit_delay_ms"
	ConfigMaxConcurrentRequests = "max_concurrent_requests"
	ConfigRetryAttempts         = "retry_attempts"
	ConfigRetryDelay            = "retry_delay"
	ConfigBatchSize             = "batch_size"
	ConfigAutoSyncEnabled       = "auto_sync_enabled"
	ConfigSyncIntervalMinutes   = "sync_interval_minutes"
	ConfigTokenRefreshMinutes   = "token_refresh_interval_minutes"
)

// SyncConfig is a typed snapshot of the sync settings.
// It is read once at the start of a run and never mutated during it.
type SyncConfig struct {
	RateLimitDelayMs      int  `json:"rate_limit_delay_ms"`
	MaxConcurrentRequests int  `json:"max_concurrent_requests"`
	RetryAttempts         int  `json:"retry_attempts"`
	RetryDelayMs          int  `json:"retry_delay"`
	BatchSize             int  `json:"batch_size"`
	AutoSyncEnabled       bool `json:"auto_sync_enabled"`
	SyncIntervalMinutes   int  `json:"sync_interval_minutes"`
	TokenRefreshMinutes   int  `json:"token_refresh_interval_minutes"`
}

// DefaultSyncConfig returns the values used when a key is missing or unparseable
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		RateLimitDelayMs:      500,
		MaxConcurrentRequests: 5,
		RetryAttempts:         3,
		RetryDelayMs:          1000,
		BatchSize:             50,
		AutoSyncEnabled:       true,
		SyncIntervalMinutes:   60,
		TokenRefreshMinutes:   30,
	}
}

// RateLimitDelay is the minimum spacing between outbound marketplace calls
func (c SyncConfig) RateLimitDelay() time.Duration {
	return time.Duration(c.RateLimitDelayMs) * time.Millisecond
}

// RetryDelay is the backoff base
func (c SyncConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// InterBatchDelay is the pause between two batches of one run
func (c SyncConfig) InterBatchDelay() time.Duration {
	return 2 * c.RateLimitDelay()
}

// SyncInterval is the delta sync period
func (c SyncConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}

// TokenRefreshInterval is the token refresh period
func (c SyncConfig) TokenRefreshInterval() time.Duration {
	return time.Duration(c.TokenRefreshMinutes) * time.Minute
}

// Values renders the config back into its key/value form
func (c SyncConfig) Values() map[string]string {
	return map[string]string{
		ConfigRateLimitDelayMs:      strconv.Itoa(c.RateLimitDelayMs),
		ConfigMaxConcurrentRequests: strconv.Itoa(c.MaxConcurrentRequests),
		ConfigRetryAttempts:         strconv.Itoa(c.RetryAttempts),
		ConfigRetryDelay:            strconv.Itoa(c.RetryDelayMs),
		ConfigBatchSize:             strconv.Itoa(c.BatchSize),
		ConfigAutoSyncEnabled:       strconv.FormatBool(c.AutoSyncEnabled),
		ConfigSyncIntervalMinutes:   strconv.Itoa(c.SyncIntervalMinutes),
		ConfigTokenRefreshMinutes:   strconv.Itoa(c.TokenRefreshMinutes),
	}
}

// configField describes how a key parses and where it lands
type configField struct {
	min   int
	isInt bool
	set   func(c *SyncConfig, v string)
}

var configFields = map[string]configField{
	ConfigRateLimitDelayMs: {min: 0, isInt: true, set: func(c *SyncConfig, v string) {
		c.RateLimitDelayMs, _ = strconv.Atoi(v)
	}},
	ConfigMaxConcurrentRequests: {min: 1, isInt: true, set: func(c *SyncConfig, v string) {
		c.MaxConcurrentRequests, _ = strconv.Atoi(v)
	}},
	ConfigRetryAttempts: {min: 1, isInt: true, set: func(c *SyncConfig, v string) {
		c.RetryAttempts, _ = strconv.Atoi(v)
	}},
	ConfigRetryDelay: {min: 0, isInt: true, set: func(c *SyncConfig, v string) {
		c.RetryDelayMs, _ = strconv.Atoi(v)
	}},
	ConfigBatchSize: {min: 1, isInt: true, set: func(c *SyncConfig, v string) {
		c.BatchSize, _ = strconv.Atoi(v)
	}},
	ConfigAutoSyncEnabled: {set: func(c *SyncConfig, v string) {
		c.AutoSyncEnabled, _ = strconv.ParseBool(v)
	}},
	ConfigSyncIntervalMinutes: {min: 1, isInt: true, set: func(c *SyncConfig, v string) {
		c.SyncIntervalMinutes, _ = strconv.Atoi(v)
	}},
	ConfigTokenRefreshMinutes: {min: 1, isInt: true, set: func(c *SyncConfig, v string) {
		c.TokenRefreshMinutes, _ = strconv.Atoi(v)
	}},
}

// IsKnownConfigKey reports whether key is one of the sync config keys
func IsKnownConfigKey(key string) bool {
	_, ok := configFields[key]
	return ok
}

// ValidateConfigValue checks that value parses for key
func ValidateConfigValue(key, value string) error {
	field, ok := configFields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}
	if !field.isInt {
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfigValue, key, value)
		}
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfigValue, key, value)
	}
	if n < field.min {
		return fmt.Errorf("%w: %s must be >= %d", ErrInvalidConfigValue, key, field.min)
	}
	return nil
}

// ParseSyncConfig builds a SyncConfig from stored key/value pairs.
// Unknown keys are ignored; invalid values fall back to defaults.
func ParseSyncConfig(values map[string]string) SyncConfig {
	cfg := DefaultSyncConfig()
	for key, value := range values {
		field, ok := configFields[key]
		if !ok {
			continue
		}
		if ValidateConfigValue(key, value) != nil {
			continue
		}
		field.set(&cfg, value)
	}
	return cfg
}
