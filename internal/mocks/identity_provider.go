package mocks

import (
	"context"

	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// MockIdentityProvider resolves access tokens from a fixed table.
type MockIdentityProvider struct {
	FetchProfileFn func(ctx context.Context, provider store.Provider, accessToken string) (*domain.ExternalProfile, error)

	Profiles map[string]*domain.ExternalProfile
}

// FetchProfile implements service.IdentityProvider. Unknown tokens are
// rejected with ErrUnauthorized.
func (m *MockIdentityProvider) FetchProfile(
	ctx context.Context,
	provider store.Provider,
	accessToken string,
) (*domain.ExternalProfile, error) {
	if m.FetchProfileFn != nil {
		return m.FetchProfileFn(ctx, provider, accessToken)
	}
	p, ok := m.Profiles[accessToken]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	c := *p
	return &c, nil
}
