package driving

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// SyncOrchestrator coordinates marketplace synchronization
type SyncOrchestrator interface {
	// SyncSingleProduct syncs one marketplace item using the user's connected account.
	// Always records one log entry and finalizes one job; errors are returned after logging.
	SyncSingleProduct(ctx context.Context, itemID, userID string) (*domain.ItemOutcome, error)

	// RunDeltaSync re-checks every locally known marketplace item for remote changes.
	// A call made while another delta run is active returns a skipped result.
	RunDeltaSync(ctx context.Context) (*domain.RunResult, error)

	// RunFullImport discovers and imports all active listings of the user's seller account
	RunFullImport(ctx context.Context, userID string) (*domain.RunResult, error)

	// GetJob retrieves a sync job
	GetJob(ctx context.Context, jobID string) (*domain.SyncJob, error)

	// ListJobs retrieves the most recent sync jobs
	ListJobs(ctx context.Context, limit int) ([]*domain.SyncJob, error)

	// ListJobLogs retrieves the log entries of a job
	ListJobLogs(ctx context.Context, jobID string) ([]*domain.SyncLogEntry, error)
}

// Scheduler runs periodic tasks
type Scheduler interface {
	// Start begins the scheduling loop
	Start(ctx context.Context) error

	// Stop stops the scheduling loop and waits for it to exit
	Stop(ctx context.Context) error
}
