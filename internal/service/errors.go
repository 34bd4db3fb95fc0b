package service

import (
	"errors"

	"github.com/phrazzld/flashlet-api/internal/domain"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check them with errors.Is; the API layer maps them to status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrUploadsDisabled indicates a profile image was sent but no image store is configured.
	ErrUploadsDisabled = domain.NewValidationError("profile_image", "image uploads are not enabled", nil)

	// ErrInvalidImage indicates an upload that is not an accepted image.
	ErrInvalidImage = domain.NewValidationError("profile_image", "must be a jpeg, png, gif or webp image under 5MB", nil)
)
