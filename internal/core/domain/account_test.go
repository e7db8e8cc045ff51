package domain

import (
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestMarketplaceAccountNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		account MarketplaceAccount
		want    bool
	}{
		{
			name:    "expires in 30 minutes",
			account: MarketplaceAccount{AccessToken: "a", RefreshToken: "r", ExpiresAt: timePtr(now.Add(30 * time.Minute))},
			want:    true,
		},
		{
			name:    "expires in 2 hours",
			account: MarketplaceAccount{AccessToken: "a", RefreshToken: "r", ExpiresAt: timePtr(now.Add(2 * time.Hour))},
			want:    false,
		},
		{
			name:    "already expired",
			account: MarketplaceAccount{AccessToken: "a", RefreshToken: "r", ExpiresAt: timePtr(now.Add(-time.Minute))},
			want:    true,
		},
		{
			name:    "no refresh token",
			account: MarketplaceAccount{AccessToken: "a", ExpiresAt: timePtr(now.Add(10 * time.Minute))},
			want:    false,
		},
		{
			name:    "unknown expiry",
			account: MarketplaceAccount{AccessToken: "a", RefreshToken: "r"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.NeedsRefresh(now); got != tt.want {
				t.Errorf("expected NeedsRefresh()=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestMarketplaceAccountValidity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		account MarketplaceAccount
		want    TokenValidity
	}{
		{"no token", MarketplaceAccount{ExpiresAt: timePtr(now.Add(5 * time.Hour))}, TokenInvalid},
		{"no expiry", MarketplaceAccount{AccessToken: "a"}, TokenInvalid},
		{"expired", MarketplaceAccount{AccessToken: "a", ExpiresAt: timePtr(now.Add(-time.Second))}, TokenExpired},
		{"expiring soon", MarketplaceAccount{AccessToken: "a", ExpiresAt: timePtr(now.Add(20 * time.Minute))}, TokenExpiringSoon},
		{"valid", MarketplaceAccount{AccessToken: "a", ExpiresAt: timePtr(now.Add(3 * time.Hour))}, TokenValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.Validity(now); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMarketplaceAccountIsConnected(t *testing.T) {
	acc := &MarketplaceAccount{ID: "acc-1"}
	if acc.IsConnected() {
		t.Error("expected account without token to be disconnected")
	}
	acc.AccessToken = "APP_USR-123"
	if !acc.IsConnected() {
		t.Error("expected account with token to be connected")
	}
}
