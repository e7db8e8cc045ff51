package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// MockMarketplaceClient is a mock implementation of MarketplaceClient for testing.
// Items are served from memory; per-item errors and hooks inject failures.
type MockMarketplaceClient struct {
	mu           sync.RWMutex
	items        map[string]*domain.Item
	descriptions map[string]string
	itemErrors   map[string]error
	sellerItems  map[string][]string
	applied      []domain.SyncConfig
	itemCalls    map[string]int
	searchCalls  int

	DescriptionErr error
	SearchFn       func(sellerID string, offset, limit int) ([]string, error)
	GetItemFn      func(ctx context.Context, itemID string) (*domain.Item, string, error)
}

// NewMockMarketplaceClient creates a new MockMarketplaceClient
func NewMockMarketplaceClient() *MockMarketplaceClient {
	return &MockMarketplaceClient{
		items:        make(map[string]*domain.Item),
		descriptions: make(map[string]string),
		itemErrors:   make(map[string]error),
		sellerItems:  make(map[string][]string),
		itemCalls:    make(map[string]int),
	}
}

// SetItem stores an item and its description
func (m *MockMarketplaceClient) SetItem(item *domain.Item, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ID] = &cp
	m.descriptions[item.ID] = description
}

// FailItem makes GetItem fail for the given id
func (m *MockMarketplaceClient) FailItem(itemID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemErrors[itemID] = err
}

// SetSellerItems sets the item ids listed for a seller
func (m *MockMarketplaceClient) SetSellerItems(sellerID string, ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sellerItems[sellerID] = ids
}

func (m *MockMarketplaceClient) ApplyConfig(cfg domain.SyncConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, cfg)
}

func (m *MockMarketplaceClient) GetItem(ctx context.Context, itemID, accessToken string) (*domain.Item, string, error) {
	m.mu.Lock()
	m.itemCalls[itemID]++
	m.mu.Unlock()

	if m.GetItemFn != nil {
		return m.GetItemFn(ctx, itemID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.itemErrors[itemID]; ok {
		return nil, "", err
	}
	item, ok := m.items[itemID]
	if !ok {
		return nil, "", fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	cp := *item
	return &cp, `"etag-` + itemID + `"`, nil
}

func (m *MockMarketplaceClient) GetItemDescription(ctx context.Context, itemID, accessToken string) (string, error) {
	if m.DescriptionErr != nil {
		return "", m.DescriptionErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.descriptions[itemID], nil
}

func (m *MockMarketplaceClient) SearchSellerItems(ctx context.Context, sellerID, accessToken string, offset, limit int) ([]string, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()

	if m.SearchFn != nil {
		return m.SearchFn(sellerID, offset, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.sellerItems[sellerID]
	if offset >= len(ids) {
		return []string{}, nil
	}
	end := min(offset+limit, len(ids))
	return append([]string(nil), ids[offset:end]...), nil
}

// AppliedConfigs returns every config pushed through ApplyConfig
func (m *MockMarketplaceClient) AppliedConfigs() []domain.SyncConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.SyncConfig(nil), m.applied...)
}

// ItemCalls returns how many times GetItem was called for an id
func (m *MockMarketplaceClient) ItemCalls(itemID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.itemCalls[itemID]
}

// SearchCalls returns how many search pages were requested
func (m *MockMarketplaceClient) SearchCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchCalls
}

// MockTokenExchanger is a mock implementation of TokenExchanger for testing
type MockTokenExchanger struct {
	mu     sync.Mutex
	grants map[string]*domain.TokenGrant
	errs   map[string]error
	calls  []string
}

// NewMockTokenExchanger creates a new MockTokenExchanger
func NewMockTokenExchanger() *MockTokenExchanger {
	return &MockTokenExchanger{
		grants: make(map[string]*domain.TokenGrant),
		errs:   make(map[string]error),
	}
}

// SetGrant configures the grant returned for a refresh token
func (m *MockTokenExchanger) SetGrant(refreshToken string, grant *domain.TokenGrant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[refreshToken] = grant
}

// SetError configures the error returned for a refresh token
func (m *MockTokenExchanger) SetError(refreshToken string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[refreshToken] = err
}

func (m *MockTokenExchanger) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, refreshToken)
	if err, ok := m.errs[refreshToken]; ok {
		return nil, err
	}
	grant, ok := m.grants[refreshToken]
	if !ok {
		return nil, fmt.Errorf("no grant configured for %s", refreshToken)
	}
	cp := *grant
	return &cp, nil
}

// Calls returns the refresh tokens exchanged, in order
func (m *MockTokenExchanger) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
