// Package oauth resolves Google and Facebook access tokens to account
// profiles by calling the providers' userinfo endpoints with the token as
// bearer credential.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/store"
	"golang.org/x/oauth2"
)

const (
	requestTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// Client fetches provider profiles.
type Client struct {
	endpoints map[store.Provider]string
	base      *http.Client
	logger    *slog.Logger
}

// NewClient creates a Client for the configured userinfo endpoints. A nil
// base client uses http.DefaultClient under a request timeout.
func NewClient(cfg config.OAuthConfig, base *http.Client, log *slog.Logger) *Client {
	if base == nil {
		base = &http.Client{Timeout: requestTimeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoints: map[store.Provider]string{
			store.ProviderGoogle:   cfg.GoogleUserInfoURL,
			store.ProviderFacebook: cfg.FacebookUserInfoURL,
		},
		base:   base,
		logger: log.With(slog.String("component", "oauth_client")),
	}
}

// googleProfile is the OpenID Connect userinfo response.
type googleProfile struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// facebookProfile is the Graph API /me response.
type facebookProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// FetchProfile implements service.IdentityProvider. A token the provider
// rejects yields domain.ErrUnauthorized.
func (c *Client) FetchProfile(
	ctx context.Context,
	provider store.Provider,
	accessToken string,
) (*domain.ExternalProfile, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	endpoint, ok := c.endpoints[provider]
	if !ok {
		return nil, domain.NewValidationError("provider", fmt.Sprintf("unsupported provider %q", provider), nil)
	}
	if accessToken == "" {
		return nil, domain.NewValidationError("access_token", "cannot be empty", nil)
	}

	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, c.base)
	client := oauth2.NewClient(httpCtx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s profile request: %w", provider, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Error("provider profile request failed",
			slog.String("provider", string(provider)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to fetch %s profile: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s profile: %w", provider, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusForbidden:
		log.Debug("provider rejected access token",
			slog.String("provider", string(provider)),
			slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: %s rejected the access token", domain.ErrUnauthorized, provider)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s profile request returned status %d", provider, resp.StatusCode)
	}

	profile, err := decodeProfile(provider, body)
	if err != nil {
		return nil, err
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, domain.NewValidationError("email", "provider account has no email address", nil)
	}
	return profile, nil
}

func decodeProfile(provider store.Provider, body []byte) (*domain.ExternalProfile, error) {
	switch provider {
	case store.ProviderGoogle:
		var p googleProfile
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to decode google profile: %w", err)
		}
		return &domain.ExternalProfile{ID: p.Sub, Email: p.Email, Name: p.Name, ImageURL: p.Picture}, nil
	default:
		var p facebookProfile
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to decode facebook profile: %w", err)
		}
		return &domain.ExternalProfile{ID: p.ID, Email: p.Email, Name: p.Name, ImageURL: p.Picture.Data.URL}, nil
	}
}
