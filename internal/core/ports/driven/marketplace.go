package driven

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// MarketplaceClient is the rate-limited, retrying marketplace API client
type MarketplaceClient interface {
	// ApplyConfig swaps the throttle and retry tunables.
	// Called once at the start of each orchestration run.
	ApplyConfig(cfg domain.SyncConfig)

	// GetItem fetches an item and the ETag of the response
	GetItem(ctx context.Context, itemID, accessToken string) (*domain.Item, string, error)

	// GetItemDescription fetches the plain-text description of an item
	GetItemDescription(ctx context.Context, itemID, accessToken string) (string, error)

	// SearchSellerItems returns one page of a seller's active item IDs
	SearchSellerItems(ctx context.Context, sellerID, accessToken string, offset, limit int) ([]string, error)
}

// TokenExchanger exchanges a refresh token at the marketplace token endpoint
type TokenExchanger interface {
	// RefreshToken returns a new grant. A rejected refresh token yields domain.ErrInvalidGrant.
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenGrant, error)
}
