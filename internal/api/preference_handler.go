package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/flashlet-api/internal/api/shared"
	"github.com/phrazzld/flashlet-api/internal/service"
)

// PreferenceHandler handles the caller's display preferences.
type PreferenceHandler struct {
	prefs  service.PreferenceService
	logger *slog.Logger
}

// NewPreferenceHandler creates a new PreferenceHandler
func NewPreferenceHandler(prefs service.PreferenceService, logger *slog.Logger) *PreferenceHandler {
	if prefs == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("preference service cannot be nil for PreferenceHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferenceHandler{
		prefs:  prefs,
		logger: logger.With(slog.String("component", "preference_handler")),
	}
}

// Get handles GET /preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	pref, err := h.prefs.Get(r.Context(), user)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get preferences")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PreferenceResponse{Preferences: pref})
}

// Update handles PUT /preferences
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req PreferenceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pref, err := h.prefs.Update(r.Context(), user, *req.DarkMode)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save preferences")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PreferenceResponse{Preferences: pref})
}
