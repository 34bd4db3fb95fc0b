package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// CredentialStore hashes and verifies passwords and issues tokens that are
// recorded on the user.
type CredentialStore struct {
	users  store.UserStore
	hasher PasswordHasher
	tokens TokenService
	logger *slog.Logger
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(
	users store.UserStore,
	hasher PasswordHasher,
	tokens TokenService,
	logger *slog.Logger,
) (*CredentialStore, error) {
	if users == nil || hasher == nil || tokens == nil {
		return nil, errors.New("credential store requires users, hasher and tokens")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With(slog.String("component", "credential_store")),
	}, nil
}

// HashPassword returns a salted hash of plaintext.
func (c *CredentialStore) HashPassword(plaintext string) (string, error) {
	return c.hasher.Hash(plaintext)
}

// VerifyPassword reports whether plaintext matches hash.
func (c *CredentialStore) VerifyPassword(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return c.hasher.Compare(hash, plaintext) == nil
}

// IssueAuthToken signs a bearer token for userID and adds it to the user's
// active tokens.
func (c *CredentialStore) IssueAuthToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := c.tokens.GenerateAuthToken(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := c.users.AddToken(ctx, userID, token); err != nil {
		return "", fmt.Errorf("failed to record auth token: %w", err)
	}
	return token, nil
}

// IssueResetToken signs a reset token for userID and stores it as the
// user's only valid reset token, replacing any earlier one.
func (c *CredentialStore) IssueResetToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := c.tokens.GenerateResetToken(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := c.users.SetResetToken(ctx, userID, token); err != nil {
		return "", fmt.Errorf("failed to record reset token: %w", err)
	}
	return token, nil
}

// VerifyResetToken checks a reset token's signature and expiry and returns
// its subject. It does not check that the token is the stored one; the
// reset itself consumes the stored token.
func (c *CredentialStore) VerifyResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := c.tokens.ValidateResetToken(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// FindByCredentials returns the user with email if password matches.
// Returns store.ErrUserNotFound for an unknown email and
// ErrInvalidCredentials for a wrong password.
func (c *CredentialStore) FindByCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := c.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !c.VerifyPassword(password, user.HashedPassword) {
		c.logger.DebugContext(ctx, "password mismatch", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
