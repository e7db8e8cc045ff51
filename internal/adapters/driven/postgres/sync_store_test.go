package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{DB: sqlDB}, mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

var stateColumns = []string{"ml_id", "last_synced_at", "last_snapshot_hash", "last_etag", "last_error", "retry_count"}

func TestSyncStateStore_Get(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncStateStore(db)
	syncedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM product_sync_state")).
		WithArgs("MLB1").
		WillReturnRows(sqlmock.NewRows(stateColumns).
			AddRow("MLB1", syncedAt, "abc123", `"etag"`, nil, 0))

	state, err := store.Get(context.Background(), "MLB1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", state.LastSnapshotHash)
	assert.Equal(t, `"etag"`, state.LastETag)
	assert.Empty(t, state.LastError)
	require.NotNil(t, state.LastSyncedAt)
	assert.True(t, state.LastSyncedAt.Equal(syncedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateStore_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncStateStore(db)

	mock.ExpectQuery(q("FROM product_sync_state")).
		WithArgs("MLB404").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "MLB404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncStateStore_SaveSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncStateStore(db)
	now := time.Now()

	mock.ExpectExec(q("retry_count = 0")).
		WithArgs("MLB1", now, "hash", `"v2"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveSuccess(context.Background(), "MLB1", "hash", `"v2"`, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateStore_SaveSuccessWithoutETag(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncStateStore(db)
	now := time.Now()

	mock.ExpectExec(q("INSERT INTO product_sync_state")).
		WithArgs("MLB1", now, "hash", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveSuccess(context.Background(), "MLB1", "hash", "", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateStore_SaveFailureIncrementsRetries(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncStateStore(db)

	mock.ExpectExec(q("retry_count = product_sync_state.retry_count + 1")).
		WithArgs("MLB1", "fetch failed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveFailure(context.Background(), "MLB1", "fetch failed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateStore_List(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncStateStore(db)

	mock.ExpectQuery(q("ORDER BY retry_count DESC")).
		WillReturnRows(sqlmock.NewRows(stateColumns).
			AddRow("MLB2", nil, nil, nil, "boom", 3).
			AddRow("MLB1", time.Now(), "h", nil, nil, 0))

	states, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, 3, states[0].RetryCount)
	assert.Nil(t, states[0].LastSyncedAt)
	assert.Equal(t, "boom", states[0].LastError)
}

var jobColumns = []string{"id", "type", "status", "total", "processed", "started_at", "finished_at", "error"}

func TestSyncJobStore_Create(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncJobStore(db)
	started := time.Now()

	mock.ExpectExec(q("INSERT INTO sync_jobs")).
		WithArgs("job-1", "delta", "running", 10, 0, started, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Create(context.Background(), &domain.SyncJob{
		ID:        "job-1",
		Type:      domain.JobTypeDelta,
		Status:    domain.JobStatusRunning,
		Total:     10,
		StartedAt: &started,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobStore_UpdateProgress(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncJobStore(db)

	mock.ExpectExec(q("UPDATE sync_jobs SET processed = $2, total = $3")).
		WithArgs("job-1", 50, 120).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE sync_jobs SET processed")).
		WithArgs("job-done", 1, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.UpdateProgress(context.Background(), "job-1", 50, 120))
	assert.ErrorIs(t, store.UpdateProgress(context.Background(), "job-done", 1, 1), domain.ErrNotFound)
}

func TestSyncJobStore_Finalize(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncJobStore(db)
	finished := time.Now()

	mock.ExpectExec(q("finished_at IS NULL")).
		WithArgs("job-1", "partial", "1 of 5 items failed", finished).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("finished_at IS NULL")).
		WithArgs("job-1", "success", nil, finished).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Finalize(context.Background(), "job-1", domain.JobStatusPartial, "1 of 5 items failed", finished))
	err := store.Finalize(context.Background(), "job-1", domain.JobStatusSuccess, "", finished)
	assert.ErrorIs(t, err, domain.ErrNotFound, "a finished job is never modified again")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobStore_GetAndList(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncJobStore(db)
	started := time.Now().Add(-time.Minute)
	finished := time.Now()

	mock.ExpectQuery(q("FROM sync_jobs")).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("job-1", "full_import", "success", 120, 120, started, finished, nil))
	mock.ExpectQuery(q("FROM sync_jobs")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q("ORDER BY created_at DESC")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("job-2", "delta", "running", 10, 5, started, nil, nil).
			AddRow("job-1", "full_import", "success", 120, 120, started, finished, nil))

	job, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeFullImport, job.Type)
	assert.Equal(t, domain.JobStatusSuccess, job.Status)
	assert.True(t, job.IsFinished())

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	jobs, err := store.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.False(t, jobs[0].IsFinished())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogStore_Append(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncLogStore(db)
	created := time.Now()

	mock.ExpectQuery(q("INSERT INTO sync_logs")).
		WithArgs("job-1", "MLB1", "update", `{"name":{"old":"a","new":"b"}}`, true, nil, created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectQuery(q("INSERT INTO sync_logs")).
		WithArgs("job-1", "MLB2", "error", nil, false, "boom", created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(43))

	entry := &domain.SyncLogEntry{
		JobID:     "job-1",
		MLID:      "MLB1",
		Action:    domain.SyncActionUpdate,
		Diff:      []byte(`{"name":{"old":"a","new":"b"}}`),
		Success:   true,
		CreatedAt: created,
	}
	require.NoError(t, store.Append(context.Background(), entry))
	assert.Equal(t, int64(42), entry.ID)

	failed := &domain.SyncLogEntry{
		JobID:     "job-1",
		MLID:      "MLB2",
		Action:    domain.SyncActionError,
		Error:     "boom",
		CreatedAt: created,
	}
	require.NoError(t, store.Append(context.Background(), failed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogStore_ListByJob(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSyncLogStore(db)

	mock.ExpectQuery(q("FROM sync_logs")).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "ml_id", "action", "diff", "success", "error", "created_at"}).
			AddRow(1, "job-1", "MLB1", "insert", nil, true, nil, time.Now()).
			AddRow(2, "job-1", "MLB2", "error", nil, false, "boom", time.Now()))

	entries, err := store.ListByJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.SyncActionInsert, entries[0].Action)
	assert.Equal(t, "boom", entries[1].Error)
	assert.False(t, entries[1].Success)
}
