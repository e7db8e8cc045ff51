package domain

import "time"

// TokenRefreshWindow is how far ahead of expiry an access token is refreshed
const TokenRefreshWindow = time.Hour

// TokenValidity classifies the state of an account's access token
type TokenValidity string

const (
	TokenInvalid      TokenValidity = "invalid"
	TokenExpired      TokenValidity = "expired"
	TokenValid        TokenValidity = "valid"
	TokenExpiringSoon TokenValidity = "expiring_soon"
)

// MarketplaceAccount is a seller account connected by a local user
type MarketplaceAccount struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	SellerID     string     `json:"seller_id"`
	Nickname     string     `json:"nickname"`
	AccessToken  string     `json:"-"` // Never serialize
	RefreshToken string     `json:"-"` // Never serialize
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scope        string     `json:"scope,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsConnected reports whether the account currently holds an access token
func (a *MarketplaceAccount) IsConnected() bool {
	return a.AccessToken != ""
}

// CanRefresh reports whether a refresh token is available
func (a *MarketplaceAccount) CanRefresh() bool {
	return a.RefreshToken != ""
}

// ExpiresWithin reports whether the token expires before now+window.
// Accounts without a known expiry never qualify.
func (a *MarketplaceAccount) ExpiresWithin(window time.Duration, now time.Time) bool {
	if a.ExpiresAt == nil {
		return false
	}
	return !a.ExpiresAt.After(now.Add(window))
}

// NeedsRefresh reports whether the account should be picked by the token refresher
func (a *MarketplaceAccount) NeedsRefresh(now time.Time) bool {
	return a.CanRefresh() && a.ExpiresWithin(TokenRefreshWindow, now)
}

// Validity classifies the access token at the given instant
func (a *MarketplaceAccount) Validity(now time.Time) TokenValidity {
	if !a.IsConnected() || a.ExpiresAt == nil {
		return TokenInvalid
	}
	if !a.ExpiresAt.After(now) {
		return TokenExpired
	}
	if a.ExpiresWithin(TokenRefreshWindow, now) {
		return TokenExpiringSoon
	}
	return TokenValid
}

// TokenGrant is the marketplace token endpoint response
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshSummary reports what one token refresh cycle did
type RefreshSummary struct {
	Candidates int `json:"candidates"`
	Refreshed  int `json:"refreshed"`
	Revoked    int `json:"revoked"`
	Failed     int `json:"failed"`
}
