package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
)

const minSecretLength = 32

// hmacTokenService implements TokenService with HS256 and two signing keys.
type hmacTokenService struct {
	authKey       []byte
	resetKey      []byte
	resetLifetime time.Duration
	timeFunc      func() time.Time
}

type tokenClaims struct {
	UserID    uuid.UUID `json:"uid"`
	TokenType string    `json:"type"`
	jwt.RegisteredClaims
}

var _ TokenService = (*hmacTokenService)(nil)

// TokenOption configures the token service.
type TokenOption func(*hmacTokenService)

// WithTimeFunc overrides the clock used for issuing and validating tokens.
func WithTimeFunc(now func() time.Time) TokenOption {
	return func(s *hmacTokenService) {
		s.timeFunc = now
	}
}

// NewTokenService creates a TokenService from the auth configuration.
func NewTokenService(cfg config.AuthConfig, opts ...TokenOption) (TokenService, error) {
	if len(cfg.JWTSecret) < minSecretLength || len(cfg.ResetSecret) < minSecretLength {
		return nil, fmt.Errorf("token secrets must be at least %d characters", minSecretLength)
	}
	if cfg.JWTSecret == cfg.ResetSecret {
		return nil, errors.New("auth and reset token secrets must differ")
	}
	if cfg.ResetTokenLifetimeMinutes <= 0 {
		return nil, errors.New("reset token lifetime must be positive")
	}

	s := &hmacTokenService{
		authKey:       []byte(cfg.JWTSecret),
		resetKey:      []byte(cfg.ResetSecret),
		resetLifetime: time.Duration(cfg.ResetTokenLifetimeMinutes) * time.Minute,
		timeFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateAuthToken implements TokenService.
func (s *hmacTokenService) GenerateAuthToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.sign(ctx, userID, TokenTypeAuth, s.authKey, 0)
}

// ValidateAuthToken implements TokenService.
func (s *hmacTokenService) ValidateAuthToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.parse(ctx, tokenString, TokenTypeAuth, s.authKey, ErrInvalidToken, ErrExpiredToken)
}

// GenerateResetToken implements TokenService.
func (s *hmacTokenService) GenerateResetToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.sign(ctx, userID, TokenTypeReset, s.resetKey, s.resetLifetime)
}

// ValidateResetToken implements TokenService.
func (s *hmacTokenService) ValidateResetToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.parse(ctx, tokenString, TokenTypeReset, s.resetKey, ErrInvalidResetToken, ErrExpiredResetToken)
}

// sign issues a token; a zero lifetime omits the exp claim.
func (s *hmacTokenService) sign(
	ctx context.Context,
	userID uuid.UUID,
	tokenType string,
	key []byte,
	lifetime time.Duration,
) (string, error) {
	now := s.timeFunc()
	claims := tokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID.String(),
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	if lifetime > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(lifetime))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign token",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("token_type", tokenType))
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// parse validates a token with no leeway, so a token expiring at t is
// rejected from t onward.
func (s *hmacTokenService) parse(
	ctx context.Context,
	tokenString string,
	tokenType string,
	key []byte,
	invalidErr, expiredErr error,
) (*Claims, error) {
	log := logger.FromContext(ctx)
	if tokenString == "" {
		return nil, invalidErr
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&tokenClaims{},
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(s.timeFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("token validation failed: expired", slog.String("token_type", tokenType))
			return nil, expiredErr
		}
		log.Debug("token validation failed",
			slog.String("token_type", tokenType),
			slog.String("error_type", fmt.Sprintf("%T", err)))
		return nil, invalidErr
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, invalidErr
	}
	if claims.TokenType != tokenType {
		log.Debug("token validation failed: wrong token type",
			slog.String("expected", tokenType),
			slog.String("actual", claims.TokenType))
		return nil, fmt.Errorf("%w: %w", invalidErr, ErrWrongTokenType)
	}

	out := &Claims{
		UserID:    claims.UserID,
		TokenType: claims.TokenType,
		ID:        claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
