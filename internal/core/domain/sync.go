package domain

import "time"

// JobType identifies the kind of synchronization a job performs
type JobType string

const (
	JobTypeSingleItem JobType = "single_item"
	JobTypeDelta      JobType = "delta"
	JobTypeFullImport JobType = "full_import"
)

// JobStatus represents the lifecycle state of a sync job
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusPartial JobStatus = "partial"
	JobStatusFailed  JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusPartial, JobStatusFailed:
		return true
	default:
		return false
	}
}

// SyncJob is the bookkeeping row for one orchestration run
type SyncJob struct {
	ID         string     `json:"id"`
	Type       JobType    `json:"type"`
	Status     JobStatus  `json:"status"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// IsFinished reports whether the job has been finalized
func (j *SyncJob) IsFinished() bool {
	return j.FinishedAt != nil
}

// SyncAction is what a single sync attempt did to the local product
type SyncAction string

const (
	SyncActionInsert SyncAction = "insert"
	SyncActionUpdate SyncAction = "update"
	SyncActionNoop   SyncAction = "noop"
	SyncActionError  SyncAction = "error"
)

// ProductSyncState tracks the last known remote snapshot of a marketplace item
type ProductSyncState struct {
	MLID             string     `json:"ml_id"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
	LastSnapshotHash string     `json:"last_snapshot_hash,omitempty"`
	LastETag         string     `json:"last_etag,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	RetryCount       int        `json:"retry_count"`
}

// SyncLogEntry is an append-only audit row, one per item per attempt
type SyncLogEntry struct {
	ID        int64      `json:"id"`
	JobID     string     `json:"job_id"`
	MLID      string     `json:"ml_id"`
	Action    SyncAction `json:"action"`
	Diff      []byte     `json:"diff,omitempty"` // JSON, only for updates
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SyncTally aggregates per-item outcomes of a run
type SyncTally struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

// Record adds one item outcome to the tally
func (t *SyncTally) Record(action SyncAction) {
	t.Processed++
	switch action {
	case SyncActionError:
		t.Errors++
	case SyncActionInsert, SyncActionUpdate:
		t.Updated++
	}
}

// Succeeded is the number of items processed without error
func (t SyncTally) Succeeded() int {
	return t.Processed - t.Errors
}

// Status derives the terminal job status from the tally against the run's total.
// failed: nothing succeeded. success: all total items processed without error.
// partial: anything in between, including items left unprocessed.
func (t SyncTally) Status(total int) JobStatus {
	switch {
	case t.Succeeded() == 0:
		return JobStatusFailed
	case t.Errors == 0 && t.Processed >= total:
		return JobStatusSuccess
	default:
		return JobStatusPartial
	}
}

// RunResult is what delta sync and full import report to their callers
type RunResult struct {
	JobID   string    `json:"job_id,omitempty"`
	Status  JobStatus `json:"status,omitempty"`
	Skipped bool      `json:"skipped"`
	Batches int       `json:"batches"`
	SyncTally
	Error string `json:"error,omitempty"`
}

// ItemOutcome is the result of a single-item sync
type ItemOutcome struct {
	JobID  string     `json:"job_id"`
	MLID   string     `json:"ml_id"`
	Action SyncAction `json:"action"`
}
