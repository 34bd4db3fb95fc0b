package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/flashlet-api/internal/api/shared"
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
	"github.com/phrazzld/flashlet-api/internal/redact"
	"github.com/phrazzld/flashlet-api/internal/service"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// profileImageField is the multipart field carrying a new profile image.
const profileImageField = "profile_image"

// maxProfileFormBytes bounds a multipart profile update.
const maxProfileFormBytes = service.MaxProfileImageSize + 1<<20

// profileFormMemory is how much of a multipart form is held in memory;
// larger parts spill to temporary files.
const profileFormMemory = 1 << 20

// UserHandler handles account, session and profile requests.
type UserHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users service.UserService, logger *slog.Logger) *UserHandler {
	if users == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("user service cannot be nil for UserHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		users:  users,
		logger: logger.With(slog.String("component", "user_handler")),
	}
}

// SignUp handles POST /users/signup
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, created, err := h.users.SignUp(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	shared.RespondWithJSON(w, r, status, UserResponse{User: user})
}

// SignIn handles POST /users/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, token, err := h.users.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to sign in")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{User: user, Token: token})
}

// SignInWithProvider returns the handler for POST /users/signin/{provider}.
func (h *UserHandler) SignInWithProvider(provider store.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProviderSignInRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		user, token, err := h.users.SignInWithProvider(r.Context(), provider, req.AccessToken)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to sign in")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{User: user, Token: token})
	}
}

// SignOut handles DELETE /users/signout
func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.users.SignOut(r.Context(), user, shared.TokenFromContext(r.Context())); err != nil {
		HandleAPIError(w, r, err, "Failed to sign out")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Signed out")
}

// SignOutAll handles DELETE /users/signout/all
func (h *UserHandler) SignOutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.users.SignOutAll(r.Context(), user); err != nil {
		HandleAPIError(w, r, err, "Failed to sign out")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Signed out of all sessions")
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{User: user})
}

// GetProfile handles GET /users/{username}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get profile")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ProfileResponse{User: profile})
}

// ListPublicSets handles GET /users/{username}/sets
func (h *UserHandler) ListPublicSets(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.users.ListPublicSets(r.Context(), chi.URLParam(r, "username"), opts)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list sets")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// ForgotPassword handles POST /users/password/forgot
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.users.ForgotPassword(r.Context(), req.Email); err != nil {
		HandleAPIError(w, r, err, "Failed to send password reset email")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Password reset email sent")
}

// ResetPassword handles POST /users/password/reset?token=
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		HandleAPIError(w, r, domain.NewValidationError("token", "is required", nil), "")
		return
	}

	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.users.ResetPassword(r.Context(), token, req.Password); err != nil {
		HandleAPIError(w, r, err, "Failed to reset password")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Password has been reset")
}

// ChangePassword handles POST /users/password/change
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.users.ChangePassword(r.Context(), user, req.OldPassword, req.Password); err != nil {
		HandleAPIError(w, r, err, "Failed to change password")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Password changed")
}

// UpdateProfile handles PATCH /users/me with a JSON or multipart body.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var (
		update service.ProfileUpdate
		parsed bool
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var release func()
		update, release, parsed = h.parseProfileForm(w, r)
		defer release()
	} else {
		var req UpdateProfileRequest
		if parsed = decodeAndValidate(w, r, &req); parsed {
			update = service.ProfileUpdate{Email: req.Email, Name: req.Name}
		}
	}
	if !parsed {
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user, update)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update profile")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{User: updated})
}

// parseProfileForm reads a multipart profile update. The image content
// type is sniffed from its first bytes rather than trusted from the client.
// release closes the uploaded file and removes any temporary files; it must
// be called once the update is done.
func (h *UserHandler) parseProfileForm(
	w http.ResponseWriter,
	r *http.Request,
) (update service.ProfileUpdate, release func(), ok bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	release = func() {}

	r.Body = http.MaxBytesReader(w, r.Body, maxProfileFormBytes)
	err := r.ParseMultipartForm(profileFormMemory)
	if form := r.MultipartForm; form != nil {
		release = func() { _ = form.RemoveAll() }
	}
	if err != nil {
		log.Debug("invalid multipart form", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return service.ProfileUpdate{}, release, false
	}

	var req UpdateProfileRequest
	if values, ok := r.MultipartForm.Value["email"]; ok && len(values) > 0 {
		req.Email = &values[0]
	}
	if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
		req.Name = &values[0]
	}
	if !validateRequest(w, r, &req) {
		return service.ProfileUpdate{}, release, false
	}
	update = service.ProfileUpdate{Email: req.Email, Name: req.Name}

	file, header, err := r.FormFile(profileImageField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return update, release, true
	case err != nil:
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid profile image")
		return service.ProfileUpdate{}, release, false
	}

	removeForm := release
	release = func() {
		_ = file.Close()
		removeForm()
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid profile image")
		return service.ProfileUpdate{}, release, false
	}
	head = head[:n]

	update.Image = &service.Upload{
		Body:        io.MultiReader(bytes.NewReader(head), file),
		Size:        header.Size,
		ContentType: http.DetectContentType(head),
		Filename:    strings.TrimSpace(header.Filename),
	}
	return update, release, true
}

// RemoveAccount handles DELETE /users/me
func (h *UserHandler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.users.RemoveAccount(r.Context(), user); err != nil {
		HandleAPIError(w, r, err, "Failed to remove account")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Account removed")
}
