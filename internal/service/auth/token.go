package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Token classes. Each is signed with its own secret.
const (
	TokenTypeAuth  = "auth"
	TokenTypeReset = "reset"
)

// TokenService issues and validates signed tokens.
type TokenService interface {
	// GenerateAuthToken creates a bearer token for userID. Auth tokens do not
	// expire; they stay valid until revoked from the user's token list.
	GenerateAuthToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateAuthToken checks signature and type of a bearer token.
	// Returns ErrInvalidToken or ErrWrongTokenType.
	ValidateAuthToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateResetToken creates a time-bound password reset token.
	GenerateResetToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateResetToken checks signature, type and expiry of a reset token.
	// Returns ErrInvalidResetToken or ErrExpiredResetToken.
	ValidateResetToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of a token.
type Claims struct {
	UserID    uuid.UUID
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero for auth tokens
	ID        string
}
