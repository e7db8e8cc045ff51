package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// SyncStateStore persists per-item synchronization state (PostgreSQL)
type SyncStateStore interface {
	// Get retrieves the sync state of a marketplace item.
	// Returns domain.ErrNotFound if no attempt was ever made.
	Get(ctx context.Context, mlID string) (*domain.ProductSyncState, error)

	// SaveSuccess upserts the state after a successful attempt: stores the new
	// hash and etag, stamps last_synced_at, clears last_error and resets retry_count.
	SaveSuccess(ctx context.Context, mlID, hash, etag string, syncedAt time.Time) error

	// SaveFailure upserts the state after a failed attempt: stores last_error and
	// increments retry_count. The previous hash is preserved.
	SaveFailure(ctx context.Context, mlID, errMsg string) error

	// List retrieves all sync states
	List(ctx context.Context) ([]*domain.ProductSyncState, error)
}

// SyncJobStore persists job bookkeeping (PostgreSQL)
type SyncJobStore interface {
	// Create inserts a new job
	Create(ctx context.Context, job *domain.SyncJob) error

	// UpdateProgress sets processed and total counters of a running job
	UpdateProgress(ctx context.Context, jobID string, processed, total int) error

	// Finalize stamps finished_at, the terminal status and the optional error message
	Finalize(ctx context.Context, jobID string, status domain.JobStatus, errMsg string, finishedAt time.Time) error

	// Get retrieves a job by ID
	Get(ctx context.Context, jobID string) (*domain.SyncJob, error)

	// ListRecent retrieves the most recent jobs, newest first
	ListRecent(ctx context.Context, limit int) ([]*domain.SyncJob, error)
}

// SyncLogStore is the append-only sync audit log (PostgreSQL)
type SyncLogStore interface {
	// Append adds one entry
	Append(ctx context.Context, entry *domain.SyncLogEntry) error

	// ListByJob retrieves the entries of a job in insertion order
	ListByJob(ctx context.Context, jobID string) ([]*domain.SyncLogEntry, error)
}
