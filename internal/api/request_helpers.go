package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/api/shared"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/redact"
)

// currentUser returns the user placed in the context by the auth middleware.
// It writes a 401 response and returns false if there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		logger.FromContext(r.Context()).Warn("user not found in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return nil, false
	}
	return user, true
}

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", nil)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", nil)
	}
	return id, nil
}

// decodeAndValidate decodes a JSON body into req and validates it. It
// writes the error response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	log := logger.FromContext(r.Context())

	if err := shared.DecodeJSON(w, r, req); err != nil {
		log.Debug("invalid request format", slog.String("error", redact.Error(err)))
		message := "Invalid request format"
		if errors.Is(err, shared.ErrEmptyBody) {
			message = "Request body is required"
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, message)
		return false
	}

	return validateRequest(w, r, req)
}

// validateRequest validates req, writing a 422 response on failure.
func validateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.ValidateRequest(req); err != nil {
		message, field := SanitizeValidationError(err)
		var opts []shared.ResponseOption
		if field != "" {
			opts = append(opts, shared.WithField(field))
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusUnprocessableEntity, message, err, opts...)
		return false
	}
	return true
}

// parseListOptions reads sortBy, orderBy, limit, page and q from the query
// string, falling back to the listing defaults.
func parseListOptions(r *http.Request) (domain.ListOptions, error) {
	opts := domain.DefaultListOptions()
	q := r.URL.Query()

	if v := q.Get("sortBy"); v != "" {
		opts.SortBy = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"orderBy", &opts.OrderBy},
		{"limit", &opts.Limit},
		{"page", &opts.Page},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, domain.NewValidationError(p.name, "must be an integer", nil)
		}
		*p.dst = n
	}

	opts.Query = q.Get("q")
	return opts, opts.Validate()
}
