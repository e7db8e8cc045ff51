package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
	"github.com/custodia-labs/marketsync/internal/core/services"
)

// Task names, also used as lock names by the scheduler
const (
	TaskDeltaSync    = "delta_sync"
	TaskTokenRefresh = "token_refresh"
)

// Worker hosts the periodic marketplace tasks.
// Delta sync and token refresh each run on their own timer, read their
// interval from the sync config before every wait, and are coordinated
// across instances through the scheduler's distributed lock.
type Worker struct {
	orchestrator driving.SyncOrchestrator
	tokens       driving.TokenService
	config       driving.SyncConfigService
	lock         driven.DistributedLock
	scheduler    *services.Scheduler
	tasks        []services.ScheduledTask
	logger       *slog.Logger

	// Internal state
	mu      sync.RWMutex
	running bool
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Orchestrator driving.SyncOrchestrator
	Tokens       driving.TokenService
	Config       driving.SyncConfigService
	Lock         driven.DistributedLock // Optional: multi-instance coordination
	Logger       *slog.Logger
	LockTTL      time.Duration
	LockRequired bool
}

// NewWorker creates a new worker with the delta sync and token refresh tasks registered.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		orchestrator: cfg.Orchestrator,
		tokens:       cfg.Tokens,
		config:       cfg.Config,
		lock:         cfg.Lock,
		logger:       logger,
	}
	w.tasks = []services.ScheduledTask{
		{
			Name:     TaskDeltaSync,
			Interval: w.syncInterval,
			Enabled:  w.autoSyncEnabled,
			Run:      w.runDeltaSync,
		},
		{
			Name:       TaskTokenRefresh,
			Interval:   w.tokenRefreshInterval,
			RunOnStart: true,
			Run:        w.runTokenRefresh,
		},
	}
	w.scheduler = services.NewScheduler(services.SchedulerConfig{
		Tasks:        w.tasks,
		Lock:         cfg.Lock,
		Logger:       logger,
		LockTTL:      cfg.LockTTL,
		LockRequired: cfg.LockRequired,
	})
	return w
}

// Start launches the scheduler. Calling Start on a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.scheduler.Start(ctx); err != nil {
		return err
	}
	w.running = true
	w.logger.Info("worker started", "tasks", len(w.tasks))
	return nil
}

// Stop stops the scheduler and waits for in-flight runs until ctx expires.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	if err := w.scheduler.Stop(ctx); err != nil {
		w.logger.Warn("worker stop timed out", "error", err)
		return err
	}
	w.logger.Info("worker stopped")
	return nil
}

// currentConfig reads the sync config, falling back to defaults when the store fails
func (w *Worker) currentConfig(ctx context.Context) domain.SyncConfig {
	cfg, err := w.config.GetSyncConfig(ctx)
	if err != nil {
		w.logger.Warn("using default sync config", "error", err)
		return domain.DefaultSyncConfig()
	}
	return cfg
}

func (w *Worker) syncInterval(ctx context.Context) time.Duration {
	return w.currentConfig(ctx).SyncInterval()
}

func (w *Worker) tokenRefreshInterval(ctx context.Context) time.Duration {
	return w.currentConfig(ctx).TokenRefreshInterval()
}

func (w *Worker) autoSyncEnabled(ctx context.Context) bool {
	return w.currentConfig(ctx).AutoSyncEnabled
}

func (w *Worker) runDeltaSync(ctx context.Context) error {
	result, err := w.orchestrator.RunDeltaSync(ctx)
	if err != nil {
		return err
	}
	if result.Skipped {
		w.logger.Info("delta sync skipped, another run is active")
		return nil
	}
	w.logger.Info("delta sync finished",
		"job_id", result.JobID,
		"status", result.Status,
		"processed", result.Processed,
		"updated", result.Updated,
		"errors", result.Errors,
	)
	return nil
}

func (w *Worker) runTokenRefresh(ctx context.Context) error {
	summary, err := w.tokens.RefreshExpiring(ctx)
	if err != nil {
		return err
	}
	if summary.Candidates > 0 {
		w.logger.Info("token refresh finished",
			"candidates", summary.Candidates,
			"refreshed", summary.Refreshed,
			"revoked", summary.Revoked,
			"failed", summary.Failed,
		)
	}
	return nil
}

// Health reports the worker state.
type Health struct {
	Running    bool   `json:"running"`
	LockHealth bool   `json:"lock_health"`
	Error      string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
// Without a lock backend the lock is reported healthy.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running:    running,
		LockHealth: true,
	}

	if w.lock != nil {
		if err := w.lock.Ping(ctx); err != nil {
			health.LockHealth = false
			health.Error = err.Error()
		}
	}

	return health
}
