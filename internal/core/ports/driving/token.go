package driving

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// TokenService keeps marketplace access tokens fresh
type TokenService interface {
	// RefreshExpiring refreshes every account whose token expires within the refresh window
	RefreshExpiring(ctx context.Context) (*domain.RefreshSummary, error)

	// CheckTokenValidity classifies the token of an account
	CheckTokenValidity(ctx context.Context, accountID string) (domain.TokenValidity, error)
}
