package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
)

// MaxProfileImageSize is the largest accepted profile image upload.
const MaxProfileImageSize = 5 << 20

// imageExtensions maps accepted content types to stored file extensions.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ProfileImageKey returns the object key for a new profile image of userID.
func ProfileImageKey(userID uuid.UUID, ext string) string {
	return fmt.Sprintf("profile-images/%s/%s%s", userID, uuid.NewString(), ext)
}

func (s *UserServiceImpl) uploadProfileImage(ctx context.Context, userID uuid.UUID, upload *Upload) (string, error) {
	if s.images == nil {
		return "", ErrUploadsDisabled
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(upload.ContentType, ";", 2)[0]))
	ext, ok := imageExtensions[contentType]
	if !ok || upload.Body == nil || upload.Size <= 0 || upload.Size > MaxProfileImageSize {
		return "", ErrInvalidImage
	}

	imageURL, err := s.images.Upload(ctx, ProfileImageKey(userID, ext), upload.Body, upload.Size, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload profile image: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("profile image uploaded",
		slog.String("user_id", userID.String()),
		slog.String("url", imageURL))
	return imageURL, nil
}
