package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.SyncStateStore = (*SyncStateStore)(nil)
	_ driven.SyncJobStore   = (*SyncJobStore)(nil)
	_ driven.SyncLogStore   = (*SyncLogStore)(nil)
)

// SyncStateStore implements driven.SyncStateStore using PostgreSQL
type SyncStateStore struct {
	db *DB
}

// NewSyncStateStore creates a new SyncStateStore
func NewSyncStateStore(db *DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

// Get retrieves the sync state of a marketplace item
func (s *SyncStateStore) Get(ctx context.Context, mlID string) (*domain.ProductSyncState, error) {
	query := `
		SELECT ml_id, last_synced_at, last_snapshot_hash, last_etag, last_error, retry_count
		FROM product_sync_state
		WHERE ml_id = $1
	`

	state, err := scanSyncState(s.db.QueryRowContext(ctx, query, mlID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SaveSuccess records a successful attempt: new hash and ETag, error cleared, retries reset
func (s *SyncStateStore) SaveSuccess(ctx context.Context, mlID, hash, etag string, syncedAt time.Time) error {
	query := `
		INSERT INTO product_sync_state (ml_id, last_synced_at, last_snapshot_hash, last_etag, last_error, retry_count)
		VALUES ($1, $2, $3, $4, NULL, 0)
		ON CONFLICT (ml_id) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			last_snapshot_hash = EXCLUDED.last_snapshot_hash,
			last_etag = EXCLUDED.last_etag,
			last_error = NULL,
			retry_count = 0
	`
	_, err := s.db.ExecContext(ctx, query, mlID, syncedAt, hash, nullIfEmpty(etag))
	return err
}

// SaveFailure records a failed attempt. The previous hash is kept.
func (s *SyncStateStore) SaveFailure(ctx context.Context, mlID, errMsg string) error {
	query := `
		INSERT INTO product_sync_state (ml_id, last_error, retry_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (ml_id) DO UPDATE SET
			last_error = EXCLUDED.last_error,
			retry_count = product_sync_state.retry_count + 1
	`
	_, err := s.db.ExecContext(ctx, query, mlID, errMsg)
	return err
}

// List retrieves all sync states, failing items first
func (s *SyncStateStore) List(ctx context.Context) ([]*domain.ProductSyncState, error) {
	query := `
		SELECT ml_id, last_synced_at, last_snapshot_hash, last_etag, last_error, retry_count
		FROM product_sync_state
		ORDER BY retry_count DESC, ml_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*domain.ProductSyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncState(row rowScanner) (*domain.ProductSyncState, error) {
	var state domain.ProductSyncState
	var syncedAt sql.Null[time.Time]
	var hash, etag, lastErr sql.NullString

	if err := row.Scan(&state.MLID, &syncedAt, &hash, &etag, &lastErr, &state.RetryCount); err != nil {
		return nil, err
	}

	state.LastSyncedAt = ptr(syncedAt)
	state.LastSnapshotHash = hash.String
	state.LastETag = etag.String
	state.LastError = lastErr.String
	return &state, nil
}

// SyncJobStore implements driven.SyncJobStore using PostgreSQL
type SyncJobStore struct {
	db *DB
}

// NewSyncJobStore creates a new SyncJobStore
func NewSyncJobStore(db *DB) *SyncJobStore {
	return &SyncJobStore{db: db}
}

// Create inserts a new job
func (s *SyncJobStore) Create(ctx context.Context, job *domain.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (id, type, status, total, processed, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		string(job.Type),
		string(job.Status),
		job.Total,
		job.Processed,
		nullable(job.StartedAt),
		nullable(job.FinishedAt),
		nullIfEmpty(job.Error),
	)
	return err
}

// UpdateProgress sets the processed and total counters of a running job
func (s *SyncJobStore) UpdateProgress(ctx context.Context, jobID string, processed, total int) error {
	query := `
		UPDATE sync_jobs SET processed = $2, total = $3
		WHERE id = $1 AND finished_at IS NULL
	`
	return s.db.execOne(ctx, query, jobID, processed, total)
}

// Finalize stamps the terminal status. A finished job is never modified again.
func (s *SyncJobStore) Finalize(ctx context.Context, jobID string, status domain.JobStatus, errMsg string, finishedAt time.Time) error {
	query := `
		UPDATE sync_jobs SET status = $2, error = $3, finished_at = $4
		WHERE id = $1 AND finished_at IS NULL
	`
	return s.db.execOne(ctx, query, jobID, string(status), nullIfEmpty(errMsg), finishedAt)
}

// Get retrieves a job by ID
func (s *SyncJobStore) Get(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	query := `
		SELECT id, type, status, total, processed, started_at, finished_at, error
		FROM sync_jobs
		WHERE id = $1
	`

	job, err := scanSyncJob(s.db.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListRecent retrieves the newest jobs first
func (s *SyncJobStore) ListRecent(ctx context.Context, limit int) ([]*domain.SyncJob, error) {
	query := `
		SELECT id, type, status, total, processed, started_at, finished_at, error
		FROM sync_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanSyncJob(row rowScanner) (*domain.SyncJob, error) {
	var job domain.SyncJob
	var startedAt, finishedAt sql.Null[time.Time]
	var errStr sql.NullString

	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Status,
		&job.Total,
		&job.Processed,
		&startedAt,
		&finishedAt,
		&errStr,
	)
	if err != nil {
		return nil, err
	}

	job.StartedAt = ptr(startedAt)
	job.FinishedAt = ptr(finishedAt)
	job.Error = errStr.String
	return &job, nil
}

// SyncLogStore implements driven.SyncLogStore using PostgreSQL
type SyncLogStore struct {
	db *DB
}

// NewSyncLogStore creates a new SyncLogStore
func NewSyncLogStore(db *DB) *SyncLogStore {
	return &SyncLogStore{db: db}
}

// Append inserts a log entry and sets its ID
func (s *SyncLogStore) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	query := `
		INSERT INTO sync_logs (job_id, ml_id, action, diff, success, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	// jsonb parameters go over the wire as text
	var diff sql.NullString
	if len(entry.Diff) > 0 {
		diff = sql.NullString{String: string(entry.Diff), Valid: true}
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return s.db.QueryRowContext(ctx, query,
		entry.JobID,
		entry.MLID,
		string(entry.Action),
		diff,
		entry.Success,
		nullIfEmpty(entry.Error),
		createdAt,
	).Scan(&entry.ID)
}

// ListByJob retrieves the entries of a job in insertion order
func (s *SyncLogStore) ListByJob(ctx context.Context, jobID string) ([]*domain.SyncLogEntry, error) {
	query := `
		SELECT id, job_id, ml_id, action, diff, success, error, created_at
		FROM sync_logs
		WHERE job_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.SyncLogEntry
	for rows.Next() {
		var entry domain.SyncLogEntry
		var diff []byte
		var errStr sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.JobID,
			&entry.MLID,
			&entry.Action,
			&diff,
			&entry.Success,
			&errStr,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entry.Diff = diff
		entry.Error = errStr.String
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
