package api

import (
	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/service"
)

// Common request/response structures

// SignUpRequest defines the payload for the signup endpoint.
type SignUpRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"max=100"`
	Password string `json:"password" validate:"required,password"`
}

// SignInRequest defines the payload for the signin endpoint.
type SignInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProviderSignInRequest carries an access token issued by Google or Facebook.
type ProviderSignInRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

// ForgotPasswordRequest defines the payload for requesting a reset email.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest defines the payload for setting a password with a reset token.
type ResetPasswordRequest struct {
	Password  string `json:"password"  validate:"required,password"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

// ChangePasswordRequest defines the payload for changing the password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	Password    string `json:"password"     validate:"required,password"`
	Password2   string `json:"password2"    validate:"required,eqfield=Password"`
}

// UpdateProfileRequest defines the JSON payload for profile updates.
// Multipart requests carry the same fields as form values plus an optional
// profile_image file.
type UpdateProfileRequest struct {
	Email *string `json:"email" validate:"omitempty,email"`
	Name  *string `json:"name"  validate:"omitempty,max=100"`
}

// CardRequest is one card of a SetRequest.
type CardRequest struct {
	Term       string `json:"term"       validate:"required,max=500"`
	Definition string `json:"definition" validate:"required,max=2000"`
	ImageURL   string `json:"image_url"  validate:"omitempty,url"`
}

// SetRequest defines the payload for creating or replacing a set.
type SetRequest struct {
	Title       string        `json:"title"       validate:"required,max=200"`
	Description string        `json:"description" validate:"max=2000"`
	IsPublic    bool          `json:"is_public"`
	Cards       []CardRequest `json:"cards"       validate:"max=500,dive"`
}

// PreferenceRequest defines the payload for saving preferences.
type PreferenceRequest struct {
	DarkMode *bool `json:"dark_mode" validate:"required"`
}

// AuthResponse is returned by the sign-in endpoints.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// UserResponse wraps the caller's own account.
type UserResponse struct {
	User *domain.User `json:"user"`
}

// ProfileResponse wraps another user's public profile.
type ProfileResponse struct {
	User *domain.PublicProfile `json:"user"`
}

// SetResponse wraps a single set.
type SetResponse struct {
	Set *domain.Set `json:"set"`
}

// PreferenceResponse wraps the caller's preferences.
type PreferenceResponse struct {
	Preferences *domain.Preference `json:"preferences"`
}

func (r SetRequest) toInput() service.SetInput {
	cards := make([]domain.Card, len(r.Cards))
	for i, c := range r.Cards {
		cards[i] = domain.Card{Term: c.Term, Definition: c.Definition, ImageURL: c.ImageURL}
	}
	return service.SetInput{
		Title:       r.Title,
		Description: r.Description,
		IsPublic:    r.IsPublic,
		Cards:       cards,
	}
}
