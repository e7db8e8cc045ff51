package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Ensure TokenClient implements the interface.
var _ driven.TokenExchanger = (*TokenClient)(nil)

// TokenClient talks to the marketplace OAuth token endpoint
type TokenClient struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
}

// NewTokenClient creates a token endpoint client from the shared marketplace config
func NewTokenClient(cfg Config) *TokenClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &TokenClient{
		httpClient:   httpClient,
		tokenURL:     strings.TrimSuffix(cfg.BaseURL, "/") + "/oauth/token",
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// RefreshToken exchanges a refresh token for a new grant.
// A rejected refresh token is reported as domain.ErrInvalidGrant.
func (t *TokenClient) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	params := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {t.clientID},
		"client_secret": {t.clientSecret},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var tokenResp struct {
		domain.TokenGrant
		Error     string `json:"error"`
		ErrorDesc string `json:"error_description"`
		Message   string `json:"message"`
	}
	decodeErr := json.Unmarshal(body, &tokenResp)

	if tokenResp.Error == "invalid_grant" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidGrant, firstNonBlank(tokenResp.ErrorDesc, tokenResp.Message))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Endpoint: "/oauth/token", Status: resp.StatusCode, Body: string(body)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if tokenResp.Error != "" {
		return nil, fmt.Errorf("oauth error: %s - %s", tokenResp.Error, tokenResp.ErrorDesc)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response without access_token")
	}

	grant := tokenResp.TokenGrant
	return &grant, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
