package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/mocks"
	"github.com/phrazzld/flashlet-api/internal/service/auth"
	"github.com/phrazzld/flashlet-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	users       *mocks.MockUserStore
	tokens      auth.TokenService
	credentials *auth.CredentialStore
	now         time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users: mocks.NewMockUserStore(),
		now:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	f.users.Hasher = hasher

	tokens, err := auth.NewTokenService(config.AuthConfig{
		JWTSecret:                 "auth-secret-that-is-at-least-32-characters",
		ResetSecret:               "reset-secret-that-is-at-least-32-characters",
		ResetTokenLifetimeMinutes: 30,
	}, auth.WithTimeFunc(f.clock))
	require.NoError(t, err)
	f.tokens = tokens

	f.credentials, err = auth.NewCredentialStore(f.users, hasher, tokens, nil)
	require.NoError(t, err)
	return f
}

func (f *fixture) seedUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(email, "Test User", password)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestNewCredentialStore_RequiresDependencies(t *testing.T) {
	t.Parallel()
	_, err := auth.NewCredentialStore(nil, auth.NewBcryptHasher(4), &mocks.MockTokenService{}, nil)
	assert.Error(t, err)
}

func TestCredentialStore_HashAndVerify(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	hash, err := f.credentials.HashPassword("Abc12345")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc12345", hash)
	assert.True(t, f.credentials.VerifyPassword("Abc12345", hash))
	assert.False(t, f.credentials.VerifyPassword("Abc123456", hash))
	assert.False(t, f.credentials.VerifyPassword("Abc12345", ""), "accounts without a password never verify")
}

func TestCredentialStore_FindByCredentials(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "a@x.com", "Abc12345")
	ctx := context.Background()

	found, err := f.credentials.FindByCredentials(ctx, "  A@X.com ", "Abc12345")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = f.credentials.FindByCredentials(ctx, "a@x.com", "wrong-pass1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = f.credentials.FindByCredentials(ctx, "nobody@x.com", "Abc12345")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestCredentialStore_IssueAuthToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "a@x.com", "Abc12345")
	ctx := context.Background()

	first, err := f.credentials.IssueAuthToken(ctx, user.ID)
	require.NoError(t, err)
	second, err := f.credentials.IssueAuthToken(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, stored.Tokens)
}

func TestCredentialStore_IssueAuthToken_StoreFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "a@x.com", "Abc12345")
	f.users.AddTokenFn = func(context.Context, uuid.UUID, string) error {
		return errors.New("connection reset")
	}

	token, err := f.credentials.IssueAuthToken(context.Background(), user.ID)
	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestCredentialStore_ResetToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "a@x.com", "Abc12345")
	ctx := context.Background()

	token, err := f.credentials.IssueResetToken(ctx, user.ID)
	require.NoError(t, err)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, token, stored.ResetPasswordToken)

	subject, err := f.credentials.VerifyResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)

	f.now = f.now.Add(30*time.Minute - time.Second)
	_, err = f.credentials.VerifyResetToken(ctx, token)
	assert.NoError(t, err)

	f.now = f.now.Add(time.Second)
	_, err = f.credentials.VerifyResetToken(ctx, token)
	assert.ErrorIs(t, err, auth.ErrExpiredResetToken)
}

func TestCredentialStore_ResetTokenReplacesPrevious(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.seedUser(t, "a@x.com", "Abc12345")
	ctx := context.Background()

	first, err := f.credentials.IssueResetToken(ctx, user.ID)
	require.NoError(t, err)
	second, err := f.credentials.IssueResetToken(ctx, user.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.users.ConsumeResetToken(ctx, user.ID, first), store.ErrNotFound)
	assert.NoError(t, f.users.ConsumeResetToken(ctx, user.ID, second))
	assert.ErrorIs(t, f.users.ConsumeResetToken(ctx, user.ID, second), store.ErrNotFound,
		"a consumed token cannot be used again")
}
