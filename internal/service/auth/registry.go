package auth

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// TokenRegistry tracks which bearer tokens are active for each user.
//
// A token is active from IssueAuthToken until it is removed by SignOut or
// SignOutAll. When presence is enforced, Authenticate rejects signed tokens
// that are no longer active; otherwise sign-out is advisory and any token
// with a valid signature for an existing user is accepted.
type TokenRegistry struct {
	users           store.UserStore
	tokens          TokenService
	enforcePresence bool
	logger          *slog.Logger
}

// NewTokenRegistry creates a TokenRegistry.
func NewTokenRegistry(
	users store.UserStore,
	tokens TokenService,
	enforcePresence bool,
	logger *slog.Logger,
) *TokenRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	if !enforcePresence {
		logger.Warn("token presence is not enforced; signed-out tokens remain usable")
	}
	return &TokenRegistry{
		users:           users,
		tokens:          tokens,
		enforcePresence: enforcePresence,
		logger:          logger.With(slog.String("component", "token_registry")),
	}
}

// EnforcesPresence reports whether signed-out tokens are rejected.
func (r *TokenRegistry) EnforcesPresence() bool {
	return r.enforcePresence
}

// Authenticate resolves a bearer token to its user.
func (r *TokenRegistry) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := r.tokens.ValidateAuthToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if r.enforcePresence && !IsActive(user, token) {
		r.logger.DebugContext(ctx, "rejected revoked token", slog.String("user_id", user.ID.String()))
		return nil, ErrRevokedToken
	}
	return user, nil
}

// IsActive reports whether token is in user's active tokens.
func IsActive(user *domain.User, token string) bool {
	return user != nil && user.HasToken(token)
}

// SignOut revokes a single token.
func (r *TokenRegistry) SignOut(ctx context.Context, userID uuid.UUID, token string) error {
	return r.users.RemoveToken(ctx, userID, token)
}

// SignOutAll revokes every token of the user.
func (r *TokenRegistry) SignOutAll(ctx context.Context, userID uuid.UUID) error {
	return r.users.ClearTokens(ctx, userID)
}
