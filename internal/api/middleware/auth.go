package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/flashlet-api/internal/api/shared"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/service/auth"
)

// Authenticator resolves a bearer token to the user it belongs to.
// *auth.TokenRegistry satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware provides bearer token authentication for routes.
type AuthMiddleware struct {
	authenticator Authenticator
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(authenticator Authenticator) *AuthMiddleware {
	if authenticator == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("authenticator cannot be nil for AuthMiddleware")
	}
	return &AuthMiddleware{authenticator: authenticator}
}

// Authenticate rejects requests without a valid bearer token and adds the
// authenticated user and token to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}
		m.serveAuthenticated(w, r, next)
	})
}

// OptionalAuthenticate lets anonymous requests through untouched. A request
// that does present a token must present a valid one.
func (m *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		m.serveAuthenticated(w, r, next)
	})
}

func (m *AuthMiddleware) serveAuthenticated(w http.ResponseWriter, r *http.Request, next http.Handler) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
		return
	}

	user, err := m.authenticator.Authenticate(r.Context(), token)
	if err != nil {
		respondAuthError(w, r, err)
		return
	}

	log := logger.FromContext(r.Context()).With(slog.String("user_id", user.ID.String()))
	ctx := logger.WithLogger(shared.WithUser(r.Context(), user, token), log)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// bearerToken extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
	case errors.Is(err, auth.ErrRevokedToken):
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Token has been revoked")
	case errors.Is(err, auth.ErrMissingToken):
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType):
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
	}
}
