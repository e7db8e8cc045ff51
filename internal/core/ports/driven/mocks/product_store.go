package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// MockProductStore is a mock implementation of ProductStore for testing
type MockProductStore struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	images   map[string][]domain.ProductImage
	nextID   int64
	upserts  int

	UpsertFn func(fields *domain.ProductFields) error
}

// NewMockProductStore creates a new MockProductStore
func NewMockProductStore() *MockProductStore {
	return &MockProductStore{
		products: make(map[string]*domain.Product),
		images:   make(map[string][]domain.ProductImage),
	}
}

// Seed stores products carrying the given marketplace ids (for test setup)
func (m *MockProductStore) Seed(mlIDs ...string) {
	for _, id := range mlIDs {
		_, _ = m.UpsertWithImages(context.Background(), &domain.ProductFields{MLID: id})
	}
	m.mu.Lock()
	m.upserts = 0
	m.mu.Unlock()
}

func (m *MockProductStore) UpsertWithImages(ctx context.Context, fields *domain.ProductFields) (bool, error) {
	if m.UpsertFn != nil {
		if err := m.UpsertFn(fields); err != nil {
			return false, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++

	now := time.Now()
	existing, ok := m.products[fields.MLID]
	if !ok {
		m.nextID++
		existing = &domain.Product{ID: m.nextID, CreatedAt: now}
		m.products[fields.MLID] = existing
	}
	existing.ProductFields = *fields
	existing.UpdatedAt = now
	m.images[fields.MLID] = fields.ImageRows()
	return !ok, nil
}

func (m *MockProductStore) ListMarketplaceIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.products))
	for id := range m.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockProductStore) GetByMarketplaceID(ctx context.Context, mlID string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[mlID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Images returns the mirrored image rows of a product
func (m *MockProductStore) Images(mlID string) []domain.ProductImage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ProductImage(nil), m.images[mlID]...)
}

// UpsertCount returns how many upserts were performed since the last Seed
func (m *MockProductStore) UpsertCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

func (m *MockProductStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}
