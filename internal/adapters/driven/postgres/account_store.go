package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AccountStore = (*AccountStore)(nil)

const accountColumns = `id, user_id, seller_id, nickname, access_token, refresh_token, expires_at, scope, updated_at`

// AccountStore implements driven.AccountStore using PostgreSQL.
// Tokens pass through the optional TokenCipher on the way in and out.
type AccountStore struct {
	db     *DB
	cipher *TokenCipher
}

// NewAccountStore creates a new AccountStore. cipher may be nil.
func NewAccountStore(db *DB, cipher *TokenCipher) *AccountStore {
	return &AccountStore{db: db, cipher: cipher}
}

// Get retrieves an account by ID
func (s *AccountStore) Get(ctx context.Context, id string) (*domain.MarketplaceAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM marketplace_accounts WHERE id = $1`

	acc, err := s.scan(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return acc, err
}

// GetByUser retrieves the most recently updated connected account of a user
func (s *AccountStore) GetByUser(ctx context.Context, userID string) (*domain.MarketplaceAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM marketplace_accounts
		WHERE user_id = $1 AND COALESCE(access_token, '') <> ''
		ORDER BY updated_at DESC
		LIMIT 1
	`

	acc, err := s.scan(s.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return acc, err
}

// ListConnected retrieves every account holding an access token
func (s *AccountStore) ListConnected(ctx context.Context) ([]*domain.MarketplaceAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM marketplace_accounts
		WHERE COALESCE(access_token, '') <> ''
		ORDER BY id
	`
	return s.list(ctx, query)
}

// ListExpiring retrieves accounts with a refresh token whose access token expires at or before the cutoff
func (s *AccountStore) ListExpiring(ctx context.Context, before time.Time) ([]*domain.MarketplaceAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM marketplace_accounts
		WHERE COALESCE(refresh_token, '') <> ''
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
		ORDER BY expires_at
	`
	return s.list(ctx, query, before)
}

// UpdateTokens stores a refreshed token pair
func (s *AccountStore) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	sealedAccess, err := s.cipher.Seal(accessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	sealedRefresh, err := s.cipher.Seal(refreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	query := `
		UPDATE marketplace_accounts
		SET access_token = $2, refresh_token = $3, expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	return s.db.execOne(ctx, query, id, sealedAccess, nullIfEmpty(sealedRefresh), expiresAt)
}

// ClearTokens nulls both tokens and the expiry. The row is kept.
func (s *AccountStore) ClearTokens(ctx context.Context, id string) error {
	query := `
		UPDATE marketplace_accounts
		SET access_token = NULL, refresh_token = NULL, expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return s.db.execOne(ctx, query, id)
}

func (s *AccountStore) list(ctx context.Context, query string, args ...any) ([]*domain.MarketplaceAccount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.MarketplaceAccount
	for rows.Next() {
		acc, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *AccountStore) scan(row rowScanner) (*domain.MarketplaceAccount, error) {
	var acc domain.MarketplaceAccount
	var sellerID, nickname, access, refresh, scope sql.NullString
	var expiresAt sql.Null[time.Time]

	err := row.Scan(
		&acc.ID,
		&acc.UserID,
		&sellerID,
		&nickname,
		&access,
		&refresh,
		&expiresAt,
		&scope,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acc.SellerID = sellerID.String
	acc.Nickname = nickname.String
	acc.Scope = scope.String
	acc.ExpiresAt = ptr(expiresAt)

	if acc.AccessToken, err = s.cipher.Open(access.String); err != nil {
		return nil, fmt.Errorf("account %s access token: %w", acc.ID, err)
	}
	if acc.RefreshToken, err = s.cipher.Open(refresh.String); err != nil {
		return nil, fmt.Errorf("account %s refresh token: %w", acc.ID, err)
	}
	return &acc, nil
}
