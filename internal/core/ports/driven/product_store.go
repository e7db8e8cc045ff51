package driven

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// ProductStore is the catalog write path used by sync (PostgreSQL)
type ProductStore interface {
	// UpsertWithImages inserts or updates the product keyed on ml_id and replaces
	// its image rows, all inside one transaction. Reports whether a new row was inserted.
	UpsertWithImages(ctx context.Context, fields *domain.ProductFields) (inserted bool, err error)

	// ListMarketplaceIDs returns the ml_id of every product that carries one
	ListMarketplaceIDs(ctx context.Context) ([]string, error)

	// GetByMarketplaceID retrieves a product by its marketplace id
	GetByMarketplaceID(ctx context.Context, mlID string) (*domain.Product, error)
}
