package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// AccountStore persists connected marketplace accounts (PostgreSQL)
type AccountStore interface {
	// Get retrieves an account by ID
	Get(ctx context.Context, id string) (*domain.MarketplaceAccount, error)

	// GetByUser retrieves the connected account of a local user.
	// Returns domain.ErrNotFound when the user has none.
	GetByUser(ctx context.Context, userID string) (*domain.MarketplaceAccount, error)

	// ListConnected retrieves all accounts holding an access token
	ListConnected(ctx context.Context) ([]*domain.MarketplaceAccount, error)

	// ListExpiring retrieves accounts with a refresh token whose expiry is at or before the given instant
	ListExpiring(ctx context.Context, before time.Time) ([]*domain.MarketplaceAccount, error)

	// UpdateTokens stores a refreshed token pair and its expiry
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error

	// ClearTokens nulls the tokens and expiry, keeping the account row
	ClearTokens(ctx context.Context, id string) error
}
