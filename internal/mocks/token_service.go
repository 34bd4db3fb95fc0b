package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/service/auth"
)

// MockTokenService implements auth.TokenService with function fields.
// Unset functions return zero values.
type MockTokenService struct {
	GenerateAuthTokenFn  func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateAuthTokenFn  func(ctx context.Context, token string) (*auth.Claims, error)
	GenerateResetTokenFn func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateResetTokenFn func(ctx context.Context, token string) (*auth.Claims, error)
}

var _ auth.TokenService = (*MockTokenService)(nil)

// GenerateAuthToken implements auth.TokenService.
func (m *MockTokenService) GenerateAuthToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateAuthTokenFn != nil {
		return m.GenerateAuthTokenFn(ctx, userID)
	}
	return "", nil
}

// ValidateAuthToken implements auth.TokenService.
func (m *MockTokenService) ValidateAuthToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateAuthTokenFn != nil {
		return m.ValidateAuthTokenFn(ctx, token)
	}
	return nil, auth.ErrInvalidToken
}

// GenerateResetToken implements auth.TokenService.
func (m *MockTokenService) GenerateResetToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateResetTokenFn != nil {
		return m.GenerateResetTokenFn(ctx, userID)
	}
	return "", nil
}

// ValidateResetToken implements auth.TokenService.
func (m *MockTokenService) ValidateResetToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateResetTokenFn != nil {
		return m.ValidateResetTokenFn(ctx, token)
	}
	return nil, auth.ErrInvalidResetToken
}
