// Package storage uploads profile images to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
)

// objectPutter is the part of *minio.Client the store uses.
type objectPutter interface {
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
}

// MinioStore writes objects to one bucket and returns their public URLs.
type MinioStore struct {
	client  objectPutter
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewMinioStore connects to the configured endpoint and creates the bucket
// if it does not exist yet.
func NewMinioStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = client.EndpointURL().String() + "/" + cfg.Bucket
	}
	return newMinioStore(client, cfg.Bucket, baseURL, log), nil
}

func newMinioStore(client objectPutter, bucket, baseURL string, log *slog.Logger) *MinioStore {
	if log == nil {
		log = slog.Default()
	}
	return &MinioStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.With(slog.String("component", "image_store")),
	}
}

// Upload stores body under key and returns the object's public URL.
func (s *MinioStore) Upload(
	ctx context.Context,
	key string,
	body io.Reader,
	size int64,
	contentType string,
) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.Error("failed to upload image",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	log.Debug("image uploaded", slog.String("key", info.Key), slog.Int64("size", info.Size))
	return s.baseURL + "/" + key, nil
}
