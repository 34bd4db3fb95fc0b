package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
)

// Provider names an external identity provider.
type Provider string

// Supported identity providers.
const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// UserStore defines the interface for user data persistence.
//
// Session tokens and the reset token live on the user row. The token methods
// mutate them with single statements so concurrent sign-ins cannot lose
// each other's tokens.
type UserStore interface {
	// Create saves a new user. A non-empty plaintext Password is hashed
	// and cleared before the row is written.
	// Returns ErrEmailExists or ErrUsernameExists on unique violations.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByProvider retrieves a user by external identity.
	// Returns ErrUserNotFound if no user is linked to providerID.
	GetByProvider(ctx context.Context, provider Provider, providerID string) (*domain.User, error)

	// Update writes profile fields, linked identities and the password hash.
	// If a new plaintext Password is set it is hashed first.
	// Tokens and the reset token are not touched; use the dedicated methods.
	// Returns ErrUserNotFound or ErrEmailExists.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user and, by cascade, their sets and preferences.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddToken appends token to the user's active tokens.
	AddToken(ctx context.Context, id uuid.UUID, token string) error

	// RemoveToken removes every occurrence of token from the active tokens.
	RemoveToken(ctx context.Context, id uuid.UUID, token string) error

	// ClearTokens empties the active tokens.
	ClearTokens(ctx context.Context, id uuid.UUID) error

	// SetResetToken overwrites the stored reset token.
	SetResetToken(ctx context.Context, id uuid.UUID, token string) error

	// ConsumeResetToken clears the stored reset token if it equals token.
	// Returns ErrNotFound if it did not match, so a token can be consumed once.
	ConsumeResetToken(ctx context.Context, id uuid.UUID, token string) error

	// WithTx returns a UserStore that runs on tx.
	WithTx(tx *sql.Tx) UserStore
}

// PasswordHasher turns a plaintext password into the hash that is persisted.
type PasswordHasher interface {
	Hash(password string) (string, error)
}
