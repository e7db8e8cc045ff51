package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// MockSyncStateStore is a mock implementation of SyncStateStore for testing
type MockSyncStateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.ProductSyncState

	SaveSuccessFn func(mlID, hash string) error
}

// NewMockSyncStateStore creates a new MockSyncStateStore
func NewMockSyncStateStore() *MockSyncStateStore {
	return &MockSyncStateStore{
		states: make(map[string]*domain.ProductSyncState),
	}
}

func (m *MockSyncStateStore) Get(ctx context.Context, mlID string) (*domain.ProductSyncState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[mlID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *state
	return &cp, nil
}

func (m *MockSyncStateStore) SaveSuccess(ctx context.Context, mlID, hash, etag string, syncedAt time.Time) error {
	if m.SaveSuccessFn != nil {
		if err := m.SaveSuccessFn(mlID, hash); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	at := syncedAt
	m.states[mlID] = &domain.ProductSyncState{
		MLID:             mlID,
		LastSyncedAt:     &at,
		LastSnapshotHash: hash,
		LastETag:         etag,
	}
	return nil
}

func (m *MockSyncStateStore) SaveFailure(ctx context.Context, mlID, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[mlID]
	if !ok {
		state = &domain.ProductSyncState{MLID: mlID}
		m.states[mlID] = state
	}
	state.LastError = errMsg
	state.RetryCount++
	return nil
}

func (m *MockSyncStateStore) List(ctx context.Context) ([]*domain.ProductSyncState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.ProductSyncState, 0, len(m.states))
	for _, state := range m.states {
		cp := *state
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MLID < result[j].MLID })
	return result, nil
}

// Put seeds a state (for test setup)
func (m *MockSyncStateStore) Put(state *domain.ProductSyncState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.states[state.MLID] = &cp
}

func (m *MockSyncStateStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// ProgressUpdate is one recorded UpdateProgress call
type ProgressUpdate struct {
	Processed int
	Total     int
}

// MockSyncJobStore is a mock implementation of SyncJobStore for testing
type MockSyncJobStore struct {
	mu       sync.RWMutex
	jobs     map[string]*domain.SyncJob
	order    []string
	progress map[string][]ProgressUpdate

	CreateFn func(job *domain.SyncJob) error
}

// NewMockSyncJobStore creates a new MockSyncJobStore
func NewMockSyncJobStore() *MockSyncJobStore {
	return &MockSyncJobStore{
		jobs:     make(map[string]*domain.SyncJob),
		progress: make(map[string][]ProgressUpdate),
	}
}

func (m *MockSyncJobStore) Create(ctx context.Context, job *domain.SyncJob) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	m.order = append(m.order, job.ID)
	return nil
}

func (m *MockSyncJobStore) UpdateProgress(ctx context.Context, jobID string, processed, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Processed = processed
	job.Total = total
	m.progress[jobID] = append(m.progress[jobID], ProgressUpdate{Processed: processed, Total: total})
	return nil
}

func (m *MockSyncJobStore) Finalize(ctx context.Context, jobID string, status domain.JobStatus, errMsg string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	at := finishedAt
	job.Status = status
	job.Error = errMsg
	job.FinishedAt = &at
	return nil
}

func (m *MockSyncJobStore) Get(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MockSyncJobStore) ListRecent(ctx context.Context, limit int) ([]*domain.SyncJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SyncJob
	for i := len(m.order) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		cp := *m.jobs[m.order[i]]
		result = append(result, &cp)
	}
	return result, nil
}

// Jobs returns all created jobs in creation order
func (m *MockSyncJobStore) Jobs() []*domain.SyncJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.SyncJob, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.jobs[id]
		result = append(result, &cp)
	}
	return result
}

// Progress returns the UpdateProgress calls recorded for a job
func (m *MockSyncJobStore) Progress(jobID string) []ProgressUpdate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ProgressUpdate(nil), m.progress[jobID]...)
}

func (m *MockSyncJobStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// MockSyncLogStore is a mock implementation of SyncLogStore for testing
type MockSyncLogStore struct {
	mu      sync.RWMutex
	entries []*domain.SyncLogEntry
}

// NewMockSyncLogStore creates a new MockSyncLogStore
func NewMockSyncLogStore() *MockSyncLogStore {
	return &MockSyncLogStore{}
}

func (m *MockSyncLogStore) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	cp.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MockSyncLogStore) ListByJob(ctx context.Context, jobID string) ([]*domain.SyncLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SyncLogEntry
	for _, e := range m.entries {
		if e.JobID == jobID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Entries returns every appended entry
func (m *MockSyncLogStore) Entries() []*domain.SyncLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.SyncLogEntry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		result = append(result, &cp)
	}
	return result
}

// CountAction returns how many entries carry the given action
func (m *MockSyncLogStore) CountAction(action domain.SyncAction) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}
