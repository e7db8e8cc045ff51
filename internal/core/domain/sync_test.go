package domain

import (
	"testing"
	"time"
)

func TestJobStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusQueued, false},
		{JobStatusRunning, false},
		{JobStatusSuccess, true},
		{JobStatusPartial, true},
		{JobStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("expected IsTerminal()=%v for %s, got %v", tt.terminal, tt.status, got)
			}
		})
	}
}

func TestSyncJobIsFinished(t *testing.T) {
	job := &SyncJob{ID: "job-1", Type: JobTypeDelta, Status: JobStatusRunning}
	if job.IsFinished() {
		t.Error("expected running job without finished_at to be unfinished")
	}

	now := time.Now()
	job.FinishedAt = &now
	if !job.IsFinished() {
		t.Error("expected job with finished_at to be finished")
	}
}

func TestSyncTallyRecord(t *testing.T) {
	var tally SyncTally
	tally.Record(SyncActionInsert)
	tally.Record(SyncActionUpdate)
	tally.Record(SyncActionNoop)
	tally.Record(SyncActionError)

	if tally.Processed != 4 {
		t.Errorf("expected Processed 4, got %d", tally.Processed)
	}
	if tally.Updated != 2 {
		t.Errorf("expected Updated 2, got %d", tally.Updated)
	}
	if tally.Errors != 1 {
		t.Errorf("expected Errors 1, got %d", tally.Errors)
	}
	if tally.Succeeded() != 3 {
		t.Errorf("expected Succeeded 3, got %d", tally.Succeeded())
	}
}

func TestSyncTallyStatus(t *testing.T) {
	tests := []struct {
		name  string
		tally SyncTally
		total int
		want  JobStatus
	}{
		{"all ok", SyncTally{Processed: 5, Updated: 2}, 5, JobStatusSuccess},
		{"all noop", SyncTally{Processed: 5}, 5, JobStatusSuccess},
		{"some errors", SyncTally{Processed: 5, Updated: 1, Errors: 1}, 5, JobStatusPartial},
		{"noop plus error", SyncTally{Processed: 2, Errors: 1}, 2, JobStatusPartial},
		{"all errors", SyncTally{Processed: 3, Errors: 3}, 3, JobStatusFailed},
		{"nothing processed", SyncTally{}, 2, JobStatusFailed},
		{"some unprocessed", SyncTally{Processed: 1, Updated: 1}, 2, JobStatusPartial},
		{"unprocessed plus error", SyncTally{Processed: 2, Errors: 1}, 3, JobStatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tally.Status(tt.total); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
