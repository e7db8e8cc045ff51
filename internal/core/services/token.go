package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.TokenService = (*TokenManager)(nil)

// DefaultRefreshPause is the pause between two account refreshes
const DefaultRefreshPause = 500 * time.Millisecond

// TokenManager refreshes marketplace access tokens before they expire
type TokenManager struct {
	accounts  driven.AccountStore
	exchanger driven.TokenExchanger
	logger    *slog.Logger
	pause     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// TokenManagerConfig holds dependencies for TokenManager
type TokenManagerConfig struct {
	Accounts  driven.AccountStore
	Exchanger driven.TokenExchanger
	Logger    *slog.Logger
	Pause     time.Duration // Pause between accounts (default: 500ms)

	// Optional, for tests
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewTokenManager creates a new token manager
func NewTokenManager(cfg TokenManagerConfig) *TokenManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pause := cfg.Pause
	if pause <= 0 {
		pause = DefaultRefreshPause
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &TokenManager{
		accounts:  cfg.Accounts,
		exchanger: cfg.Exchanger,
		logger:    logger,
		pause:     pause,
		now:       now,
		sleep:     sleep,
	}
}

// RefreshExpiring refreshes every account whose token expires within the
// refresh window and that holds a refresh token. A rejected refresh token
// clears the account's tokens; other failures are left for the next cycle.
func (m *TokenManager) RefreshExpiring(ctx context.Context) (*domain.RefreshSummary, error) {
	now := m.now()
	candidates, err := m.accounts.ListExpiring(ctx, now.Add(domain.TokenRefreshWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring accounts: %w", err)
	}

	summary := &domain.RefreshSummary{}
	for _, acc := range candidates {
		if !acc.NeedsRefresh(now) {
			continue
		}
		if summary.Candidates > 0 {
			if err := m.sleep(ctx, m.pause); err != nil {
				return summary, err
			}
		}
		summary.Candidates++
		m.refresh(ctx, acc, summary)
	}

	if summary.Candidates > 0 {
		m.logger.Info("token refresh cycle completed",
			"candidates", summary.Candidates,
			"refreshed", summary.Refreshed,
			"revoked", summary.Revoked,
			"failed", summary.Failed,
		)
	}
	return summary, nil
}

func (m *TokenManager) refresh(ctx context.Context, acc *domain.MarketplaceAccount, summary *domain.RefreshSummary) {
	grant, err := m.exchanger.RefreshToken(ctx, acc.RefreshToken)
	if errors.Is(err, domain.ErrInvalidGrant) {
		m.logger.Warn("refresh token rejected, account needs re-authorization",
			"account_id", acc.ID,
			"seller_id", acc.SellerID,
			"error", err)
		if err := m.accounts.ClearTokens(ctx, acc.ID); err != nil {
			m.logger.Error("failed to clear account tokens", "account_id", acc.ID, "error", err)
			summary.Failed++
			return
		}
		summary.Revoked++
		return
	}
	if err != nil {
		m.logger.Warn("token refresh failed", "account_id", acc.ID, "error", err)
		summary.Failed++
		return
	}

	refreshToken := grant.RefreshToken
	if refreshToken == "" {
		refreshToken = acc.RefreshToken
	}
	expiresAt := m.now().Add(time.Duration(grant.ExpiresIn) * time.Second)

	if err := m.accounts.UpdateTokens(ctx, acc.ID, grant.AccessToken, refreshToken, expiresAt); err != nil {
		m.logger.Error("failed to store refreshed tokens", "account_id", acc.ID, "error", err)
		summary.Failed++
		return
	}

	m.logger.Debug("token refreshed", "account_id", acc.ID, "expires_at", expiresAt)
	summary.Refreshed++
}

// CheckTokenValidity classifies the access token of an account
func (m *TokenManager) CheckTokenValidity(ctx context.Context, accountID string) (domain.TokenValidity, error) {
	acc, err := m.accounts.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	return acc.Validity(m.now()), nil
}
