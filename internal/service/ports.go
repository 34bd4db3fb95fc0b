package service

import (
	"context"
	"io"

	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// Mailer delivers account emails.
type Mailer interface {
	// SendPasswordReset sends the reset link to the user.
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

// ImageStore persists uploaded profile images.
type ImageStore interface {
	// Upload stores the image under key and returns its public URL.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// IdentityProvider resolves an OAuth access token to the provider's
// profile of the account.
type IdentityProvider interface {
	FetchProfile(ctx context.Context, provider store.Provider, accessToken string) (*domain.ExternalProfile, error)
}

// Upload is a profile image sent with a profile update.
type Upload struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Filename    string
}
