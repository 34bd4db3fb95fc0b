package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/mocks"
	"github.com/phrazzld/flashlet-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRegistry_SignOut(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "a@x.com", "Abc12345")
	registry := auth.NewTokenRegistry(f.users, f.tokens, true, nil)
	ctx := context.Background()

	first, err := f.credentials.IssueAuthToken(ctx, user.ID)
	require.NoError(t, err)
	second, err := f.credentials.IssueAuthToken(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, registry.SignOut(ctx, user.ID, first))

	_, err = registry.Authenticate(ctx, first)
	assert.ErrorIs(t, err, auth.ErrRevokedToken)
	authenticated, err := registry.Authenticate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authenticated.ID)
	assert.True(t, auth.IsActive(authenticated, second))
	assert.False(t, auth.IsActive(authenticated, first))
}

func TestTokenRegistry_SignOutAll(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "a@x.com", "Abc12345")
	registry := auth.NewTokenRegistry(f.users, f.tokens, true, nil)
	ctx := context.Background()

	tokens := make([]string, 3)
	for i := range tokens {
		var err error
		tokens[i], err = f.credentials.IssueAuthToken(ctx, user.ID)
		require.NoError(t, err)
	}

	require.NoError(t, registry.SignOutAll(ctx, user.ID))

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Tokens)
	for _, token := range tokens {
		_, err := registry.Authenticate(ctx, token)
		assert.ErrorIs(t, err, auth.ErrRevokedToken)
	}
}

func TestTokenRegistry_PresenceNotEnforced(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "a@x.com", "Abc12345")
	registry := auth.NewTokenRegistry(f.users, f.tokens, false, nil)
	ctx := context.Background()
	assert.False(t, registry.EnforcesPresence())

	token, err := f.credentials.IssueAuthToken(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, registry.SignOut(ctx, user.ID, token))

	authenticated, err := registry.Authenticate(ctx, token)
	require.NoError(t, err, "signed-out tokens are still accepted when presence is not enforced")
	assert.Equal(t, user.ID, authenticated.ID)
}

func TestTokenRegistry_Authenticate_Rejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	registry := auth.NewTokenRegistry(f.users, f.tokens, true, nil)
	ctx := context.Background()

	_, err := registry.Authenticate(ctx, "")
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	_, err = registry.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	orphan, err := f.tokens.GenerateAuthToken(ctx, uuid.New())
	require.NoError(t, err)
	_, err = registry.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "tokens of deleted users are invalid")

	user := f.seedUser(t, "a@x.com", "Abc12345")
	reset, err := f.credentials.IssueResetToken(ctx, user.ID)
	require.NoError(t, err)
	_, err = registry.Authenticate(ctx, reset)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "reset tokens cannot authenticate")
}

func TestTokenRegistry_UsesTokenService(t *testing.T) {
	t.Parallel()
	users := mocks.NewMockUserStore()
	tokens := &mocks.MockTokenService{}
	registry := auth.NewTokenRegistry(users, tokens, true, nil)

	_, err := registry.Authenticate(context.Background(), "anything")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
