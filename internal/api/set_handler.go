package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/flashlet-api/internal/api/shared"
	"github.com/phrazzld/flashlet-api/internal/service"
)

// SetHandler handles card set requests.
type SetHandler struct {
	sets   service.SetService
	logger *slog.Logger
}

// NewSetHandler creates a new SetHandler
func NewSetHandler(sets service.SetService, logger *slog.Logger) *SetHandler {
	if sets == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("set service cannot be nil for SetHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SetHandler{
		sets:   sets,
		logger: logger.With(slog.String("component", "set_handler")),
	}
}

// Create handles POST /sets
func (h *SetHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req SetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	set, err := h.sets.Create(r.Context(), user, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create set")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, SetResponse{Set: set})
}

// Get handles GET /sets/{id}. Authentication is optional; private sets are
// only visible to their owner.
func (h *SetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	viewer, _ := shared.UserFromContext(r.Context())
	set, err := h.sets.Get(r.Context(), viewer, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get set")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SetResponse{Set: set})
}

// Update handles PUT /sets/{id}
func (h *SetHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	set, err := h.sets.Update(r.Context(), user, id, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update set")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SetResponse{Set: set})
}

// Delete handles DELETE /sets/{id}
func (h *SetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.sets.Delete(r.Context(), user, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete set")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine handles GET /sets
func (h *SetHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.sets.ListMine(r.Context(), user, opts)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list sets")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// Search handles GET /sets/search?q=
func (h *SetHandler) Search(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.sets.Search(r.Context(), opts)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search sets")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, page)
}
