package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
	"github.com/custodia-labs/marketsync/internal/normalisers"
	"github.com/custodia-labs/marketsync/internal/snapshot"
)

// Verify interface compliance
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

const (
	// importPageSize is the page size used to discover a seller's listings
	importPageSize = 50

	defaultJobListLimit = 20
)

// SyncOrchestrator drives marketplace synchronization.
// Every run follows the same shape:
//  1. Snapshot the sync config and push it into the client
//  2. Create the job
//  3. Resolve accounts and the item IDs to process
//  4. Process items in batches (bounded concurrency, barrier per batch)
//  5. Finalize the job from the tally
type SyncOrchestrator struct {
	client   driven.MarketplaceClient
	accounts driven.AccountStore
	products driven.ProductStore
	states   driven.SyncStateStore
	jobs     driven.SyncJobStore
	logs     driven.SyncLogStore
	config   driving.SyncConfigService
	logger   *slog.Logger

	// deltaRunning admits at most one delta run per orchestrator
	deltaRunning atomic.Bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// SyncOrchestratorConfig holds dependencies for SyncOrchestrator.
type SyncOrchestratorConfig struct {
	Client   driven.MarketplaceClient
	Accounts driven.AccountStore
	Products driven.ProductStore
	States   driven.SyncStateStore
	Jobs     driven.SyncJobStore
	Logs     driven.SyncLogStore
	Config   driving.SyncConfigService
	Logger   *slog.Logger

	// Optional, for tests
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(cfg SyncOrchestratorConfig) *SyncOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &SyncOrchestrator{
		client:   cfg.Client,
		accounts: cfg.Accounts,
		products: cfg.Products,
		states:   cfg.States,
		jobs:     cfg.Jobs,
		logs:     cfg.Logs,
		config:   cfg.Config,
		logger:   logger,
		now:      now,
		sleep:    sleep,
	}
}

// run tracks one job while its batches execute
type run struct {
	jobID   string
	total   int
	batches int
	tally   domain.SyncTally
}

// SyncSingleProduct syncs one item for the user's connected account.
// One log entry is written and the job finalized on every path.
func (o *SyncOrchestrator) SyncSingleProduct(ctx context.Context, itemID, userID string) (*domain.ItemOutcome, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", domain.ErrInvalidInput)
	}

	o.applyConfig(ctx)

	job, err := o.startJob(ctx, domain.JobTypeSingleItem, 1)
	if err != nil {
		return nil, err
	}

	account, err := o.resolveAccount(ctx, userID)
	if err != nil {
		o.appendLog(ctx, job.ID, itemID, domain.SyncActionError, nil, err)
		o.finalize(ctx, job.ID, domain.JobStatusFailed, err.Error())
		return nil, err
	}

	action, err := o.syncItem(ctx, job.ID, itemID, account, false)
	o.updateProgress(ctx, job.ID, 1, 1)

	outcome := &domain.ItemOutcome{JobID: job.ID, MLID: itemID, Action: action}
	if err != nil {
		o.finalize(ctx, job.ID, domain.JobStatusFailed, err.Error())
		return outcome, err
	}

	o.finalize(ctx, job.ID, domain.JobStatusSuccess, "")
	o.logger.Info("single item sync completed", "job_id", job.ID, "ml_id", itemID, "action", action)
	return outcome, nil
}

// RunDeltaSync re-checks every locally known item against each connected seller account.
// A call made while another delta run is active returns a skipped result without creating a job.
func (o *SyncOrchestrator) RunDeltaSync(ctx context.Context) (*domain.RunResult, error) {
	if !o.deltaRunning.CompareAndSwap(false, true) {
		o.logger.Info("delta sync already running, skipping")
		return &domain.RunResult{Skipped: true}, nil
	}
	defer o.deltaRunning.Store(false)

	cfg := o.applyConfig(ctx)

	connected, err := o.accounts.ListConnected(ctx)
	if err != nil {
		return o.failBeforeStart(ctx, domain.JobTypeDelta, fmt.Errorf("failed to list accounts: %w", err))
	}
	var eligible []*domain.MarketplaceAccount
	for _, acc := range connected {
		if acc.SellerID == "" {
			o.logger.Warn("skipping account without seller id", "account_id", acc.ID)
			continue
		}
		eligible = append(eligible, acc)
	}
	if len(eligible) == 0 {
		o.logger.Info("delta sync: no connected accounts")
		return &domain.RunResult{}, nil
	}

	ids, err := o.products.ListMarketplaceIDs(ctx)
	if err != nil {
		return o.failBeforeStart(ctx, domain.JobTypeDelta, fmt.Errorf("failed to list marketplace products: %w", err))
	}
	if len(ids) == 0 {
		o.logger.Info("delta sync: no marketplace products")
		return &domain.RunResult{}, nil
	}

	job, err := o.startJob(ctx, domain.JobTypeDelta, len(ids)*len(eligible))
	if err != nil {
		return nil, err
	}
	r := &run{jobID: job.ID, total: job.Total}

	o.logger.Info("delta sync started",
		"job_id", job.ID,
		"accounts", len(eligible),
		"items", len(ids),
		"batch_size", cfg.BatchSize,
	)

	for _, acc := range eligible {
		// Re-read so tokens refreshed while earlier accounts ran are picked up
		account, err := o.accounts.Get(ctx, acc.ID)
		if err != nil {
			o.logger.Warn("delta sync: skipping account", "account_id", acc.ID, "error", err)
			continue
		}
		if !account.IsConnected() || account.SellerID == "" {
			o.logger.Warn("delta sync: account no longer usable, skipping", "account_id", acc.ID)
			continue
		}

		if err := o.runBatches(ctx, cfg, r, ids, account, false); err != nil {
			return o.failRun(ctx, r, err)
		}
	}

	return o.completeRun(ctx, r)
}

// RunFullImport discovers all active listings of the user's seller account and imports them.
func (o *SyncOrchestrator) RunFullImport(ctx context.Context, userID string) (*domain.RunResult, error) {
	cfg := o.applyConfig(ctx)

	job, err := o.startJob(ctx, domain.JobTypeFullImport, 0)
	if err != nil {
		return nil, err
	}
	r := &run{jobID: job.ID}

	account, err := o.resolveAccount(ctx, userID)
	if err != nil {
		return o.failRun(ctx, r, err)
	}

	ids, err := o.discoverItems(ctx, cfg, account)
	if err != nil {
		return o.failRun(ctx, r, fmt.Errorf("failed to list seller items: %w", err))
	}
	if len(ids) == 0 {
		return o.failRun(ctx, r, domain.ErrNoItems)
	}

	r.total = len(ids)
	o.updateProgress(ctx, job.ID, 0, r.total)

	o.logger.Info("full import started",
		"job_id", job.ID,
		"account_id", account.ID,
		"items", len(ids),
		"batch_size", cfg.BatchSize,
	)

	if err := o.runBatches(ctx, cfg, r, ids, account, true); err != nil {
		return o.failRun(ctx, r, err)
	}

	return o.completeRun(ctx, r)
}

// GetJob retrieves a sync job
func (o *SyncOrchestrator) GetJob(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	return o.jobs.Get(ctx, jobID)
}

// ListJobs retrieves the most recent sync jobs
func (o *SyncOrchestrator) ListJobs(ctx context.Context, limit int) ([]*domain.SyncJob, error) {
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	return o.jobs.ListRecent(ctx, limit)
}

// ListJobLogs retrieves the log entries of a job
func (o *SyncOrchestrator) ListJobLogs(ctx context.Context, jobID string) ([]*domain.SyncLogEntry, error) {
	return o.logs.ListByJob(ctx, jobID)
}

// applyConfig snapshots the sync config for this run and pushes it into the client.
// A config read failure falls back to defaults.
func (o *SyncOrchestrator) applyConfig(ctx context.Context) domain.SyncConfig {
	cfg, err := o.config.GetSyncConfig(ctx)
	if err != nil {
		o.logger.Warn("failed to load sync config, using defaults", "error", err)
		cfg = domain.DefaultSyncConfig()
	}
	o.client.ApplyConfig(cfg)
	return cfg
}

func (o *SyncOrchestrator) resolveAccount(ctx context.Context, userID string) (*domain.MarketplaceAccount, error) {
	account, err := o.accounts.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !account.IsConnected() {
		return nil, domain.ErrNoAccount
	}
	if account.SellerID == "" {
		return nil, domain.ErrMissingSellerID
	}
	return account, nil
}

// discoverItems pages through the seller's active listings until an empty page.
// Duplicates across pages are dropped, keeping first-seen order.
func (o *SyncOrchestrator) discoverItems(ctx context.Context, cfg domain.SyncConfig, account *domain.MarketplaceAccount) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})

	for offset := 0; ; {
		page, err := o.client.SearchSellerItems(ctx, account.SellerID, account.AccessToken, offset, importPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, id := range page {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		offset += len(page)

		if err := o.sleep(ctx, cfg.RateLimitDelay()); err != nil {
			return nil, err
		}
	}

	return ids, nil
}

// runBatches processes ids in batches of cfg.BatchSize. Members of a batch run
// concurrently (at most cfg.MaxConcurrentRequests at once) and the next batch
// starts only after every member settled. A failing member never cancels its siblings.
func (o *SyncOrchestrator) runBatches(
	ctx context.Context,
	cfg domain.SyncConfig,
	r *run,
	ids []string,
	account *domain.MarketplaceAccount,
	importMode bool,
) error {
	batchSize := max(cfg.BatchSize, 1)

	for start := 0; start < len(ids); start += batchSize {
		if r.batches > 0 {
			if err := o.sleep(ctx, cfg.InterBatchDelay()); err != nil {
				return err
			}
		}

		batch := ids[start:min(start+batchSize, len(ids))]
		actions := make([]domain.SyncAction, len(batch))

		var g errgroup.Group
		g.SetLimit(max(cfg.MaxConcurrentRequests, 1))
		for i, itemID := range batch {
			g.Go(func() error {
				defer func() {
					if rec := recover(); rec != nil {
						o.logger.Error("panic while syncing item", "job_id", r.jobID, "ml_id", itemID, "panic", rec)
						actions[i] = domain.SyncActionError
					}
				}()
				actions[i], _ = o.syncItem(ctx, r.jobID, itemID, account, importMode)
				return nil
			})
		}
		_ = g.Wait()

		var batchTally domain.SyncTally
		for _, action := range actions {
			batchTally.Record(action)
			r.tally.Record(action)
		}
		r.batches++
		o.updateProgress(ctx, r.jobID, r.tally.Processed, r.total)

		o.logger.Debug("batch completed",
			"job_id", r.jobID,
			"batch", r.batches,
			"size", len(batch),
			"updated", batchTally.Updated,
			"errors", batchTally.Errors,
		)
	}

	return nil
}

// syncItem performs one sync attempt and records its state and log entry.
// Errors are returned for callers that surface them; batch callers only use the action.
func (o *SyncOrchestrator) syncItem(
	ctx context.Context,
	jobID, itemID string,
	account *domain.MarketplaceAccount,
	importMode bool,
) (domain.SyncAction, error) {
	action, diff, err := o.applyItem(ctx, itemID, account.AccessToken, importMode)
	if err != nil {
		if saveErr := o.states.SaveFailure(ctx, itemID, err.Error()); saveErr != nil {
			o.logger.Warn("failed to save sync failure", "ml_id", itemID, "error", saveErr)
		}
		o.appendLog(ctx, jobID, itemID, domain.SyncActionError, nil, err)
		o.logger.Warn("item sync failed", "job_id", jobID, "ml_id", itemID, "error", err)
		return domain.SyncActionError, err
	}

	o.appendLog(ctx, jobID, itemID, action, diff, nil)
	return action, nil
}

// applyItem fetches, normalizes and, when the snapshot changed, upserts one item
func (o *SyncOrchestrator) applyItem(
	ctx context.Context,
	itemID, accessToken string,
	importMode bool,
) (domain.SyncAction, []byte, error) {
	item, etag, err := o.client.GetItem(ctx, itemID, accessToken)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch item: %w", err)
	}

	description, err := o.client.GetItemDescription(ctx, itemID, accessToken)
	if err != nil {
		o.logger.Debug("description unavailable", "ml_id", itemID, "error", err)
		description = ""
	}

	fields := normalisers.Map(item, description)
	fields.MLID = itemID
	hash := snapshot.Hash(item, description)

	var before *domain.ProductFields
	if !importMode {
		state, err := o.states.Get(ctx, itemID)
		switch {
		case err == nil && state.LastSnapshotHash == hash:
			if err := o.states.SaveSuccess(ctx, itemID, hash, etag, o.now()); err != nil {
				return "", nil, fmt.Errorf("failed to save sync state: %w", err)
			}
			return domain.SyncActionNoop, nil, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return "", nil, fmt.Errorf("failed to load sync state: %w", err)
		}

		existing, err := o.products.GetByMarketplaceID(ctx, itemID)
		if err == nil {
			before = &existing.ProductFields
		} else if !errors.Is(err, domain.ErrNotFound) {
			o.logger.Debug("could not load product for diff", "ml_id", itemID, "error", err)
		}
	}

	inserted, err := o.products.UpsertWithImages(ctx, fields)
	if err != nil {
		return "", nil, fmt.Errorf("failed to upsert product: %w", err)
	}
	if err := o.states.SaveSuccess(ctx, itemID, hash, etag, o.now()); err != nil {
		return "", nil, fmt.Errorf("failed to save sync state: %w", err)
	}

	switch {
	case importMode, inserted:
		return domain.SyncActionInsert, nil, nil
	default:
		return domain.SyncActionUpdate, domain.DiffJSON(before, fields), nil
	}
}

func (o *SyncOrchestrator) startJob(ctx context.Context, jobType domain.JobType, total int) (*domain.SyncJob, error) {
	now := o.now()
	job := &domain.SyncJob{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    domain.JobStatusRunning,
		Total:     total,
		StartedAt: &now,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create sync job: %w", err)
	}
	return job, nil
}

func (o *SyncOrchestrator) updateProgress(ctx context.Context, jobID string, processed, total int) {
	if err := o.jobs.UpdateProgress(ctx, jobID, processed, total); err != nil {
		o.logger.Warn("failed to update job progress", "job_id", jobID, "error", err)
	}
}

// finalize stamps the terminal state. It runs even if ctx was cancelled so no
// job is left running.
func (o *SyncOrchestrator) finalize(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) {
	if err := o.jobs.Finalize(context.WithoutCancel(ctx), jobID, status, errMsg, o.now()); err != nil {
		o.logger.Error("failed to finalize sync job", "job_id", jobID, "status", status, "error", err)
	}
}

func (o *SyncOrchestrator) appendLog(
	ctx context.Context,
	jobID, itemID string,
	action domain.SyncAction,
	diff []byte,
	cause error,
) {
	entry := &domain.SyncLogEntry{
		JobID:     jobID,
		MLID:      itemID,
		Action:    action,
		Diff:      diff,
		Success:   cause == nil,
		CreatedAt: o.now(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := o.logs.Append(context.WithoutCancel(ctx), entry); err != nil {
		o.logger.Warn("failed to append sync log", "job_id", jobID, "ml_id", itemID, "error", err)
	}
}

// completeRun finalizes a run whose batches all executed.
// Items that were never processed count against the run's total.
func (o *SyncOrchestrator) completeRun(ctx context.Context, r *run) (*domain.RunResult, error) {
	status := r.tally.Status(r.total)
	var errMsg string
	switch {
	case r.tally.Processed < r.total:
		errMsg = fmt.Sprintf("%d of %d items processed, %d failed", r.tally.Processed, r.total, r.tally.Errors)
	case status != domain.JobStatusSuccess:
		errMsg = fmt.Sprintf("%d of %d items failed", r.tally.Errors, r.tally.Processed)
	}
	o.finalize(ctx, r.jobID, status, errMsg)

	o.logger.Info("sync run completed",
		"job_id", r.jobID,
		"status", status,
		"batches", r.batches,
		"processed", r.tally.Processed,
		"updated", r.tally.Updated,
		"errors", r.tally.Errors,
	)

	return &domain.RunResult{
		JobID:     r.jobID,
		Status:    status,
		Batches:   r.batches,
		SyncTally: r.tally,
		Error:     errMsg,
	}, nil
}

// failBeforeStart records a top-level error hit before the job had a total.
// The job is created only to be finalized as failed.
func (o *SyncOrchestrator) failBeforeStart(ctx context.Context, jobType domain.JobType, err error) (*domain.RunResult, error) {
	job, jobErr := o.startJob(ctx, jobType, 0)
	if jobErr != nil {
		o.logger.Error("sync run failed before start", "job_type", jobType, "error", err, "job_error", jobErr)
		return nil, err
	}
	return o.failRun(ctx, &run{jobID: job.ID}, err)
}

// failRun finalizes a run that stopped on a top-level error
func (o *SyncOrchestrator) failRun(ctx context.Context, r *run, err error) (*domain.RunResult, error) {
	o.finalize(ctx, r.jobID, domain.JobStatusFailed, err.Error())
	o.logger.Error("sync run failed", "job_id", r.jobID, "processed", r.tally.Processed, "error", err)

	return &domain.RunResult{
		JobID:     r.jobID,
		Status:    domain.JobStatusFailed,
		Batches:   r.batches,
		SyncTally: r.tally,
		Error:     err.Error(),
	}, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
