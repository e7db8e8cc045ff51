package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// MockAccountStore is a mock implementation of AccountStore for testing
type MockAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.MarketplaceAccount

	GetFn  func(id string) (*domain.MarketplaceAccount, error)
	ListFn func() ([]*domain.MarketplaceAccount, error)
}

// NewMockAccountStore creates a new MockAccountStore
func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{
		accounts: make(map[string]*domain.MarketplaceAccount),
	}
}

// Put seeds an account (for test setup)
func (m *MockAccountStore) Put(account *domain.MarketplaceAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *account
	m.accounts[account.ID] = &cp
}

func (m *MockAccountStore) Get(ctx context.Context, id string) (*domain.MarketplaceAccount, error) {
	if m.GetFn != nil {
		return m.GetFn(id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *MockAccountStore) GetByUser(ctx context.Context, userID string) (*domain.MarketplaceAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.sorted() {
		if acc.UserID == userID && acc.IsConnected() {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountStore) ListConnected(ctx context.Context) ([]*domain.MarketplaceAccount, error) {
	if m.ListFn != nil {
		return m.ListFn()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.MarketplaceAccount
	for _, acc := range m.sorted() {
		if acc.IsConnected() {
			cp := *acc
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockAccountStore) ListExpiring(ctx context.Context, before time.Time) ([]*domain.MarketplaceAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.MarketplaceAccount
	for _, acc := range m.sorted() {
		if acc.CanRefresh() && acc.ExpiresAt != nil && !acc.ExpiresAt.After(before) {
			cp := *acc
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockAccountStore) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	at := expiresAt
	acc.AccessToken = accessToken
	acc.RefreshToken = refreshToken
	acc.ExpiresAt = &at
	return nil
}

func (m *MockAccountStore) ClearTokens(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	acc.AccessToken = ""
	acc.RefreshToken = ""
	acc.ExpiresAt = nil
	return nil
}

// sorted returns accounts ordered by ID; caller holds the lock
func (m *MockAccountStore) sorted() []*domain.MarketplaceAccount {
	result := make([]*domain.MarketplaceAccount, 0, len(m.accounts))
	for _, acc := range m.accounts {
		result = append(result, acc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
