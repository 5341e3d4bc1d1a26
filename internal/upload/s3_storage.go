package upload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

const presignExpiry = 7 * 24 * time.Hour

// S3Storage stores objects in an S3-compatible bucket. URLs point at
// ExternalURL/<bucket>/<key> when configured and are presigned otherwise.
type S3Storage struct {
	client      *minio.Client
	bucket      string
	externalURL string
}

func NewS3Storage(ctx context.Context, config *BackendConfig) (*S3Storage, error) {
	client, err := minio.New(config.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.S3AccessKey, config.S3SecretKey, ""),
		Secure: config.S3UseSSL,
		Region: config.S3Region,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, config.S3Bucket)
	if err != nil {
		return nil, err
	}

	if !exists {
		if err := client.MakeBucket(ctx, config.S3Bucket, minio.MakeBucketOptions{Region: config.S3Region}); err != nil {
			return nil, err
		}
		log.Info().Str("bucket", config.S3Bucket).Msg("[UPLOAD] Created media bucket")
	}

	return &S3Storage{
		client:      client,
		bucket:      config.S3Bucket,
		externalURL: strings.TrimRight(config.ExternalURL, "/"),
	}, nil
}

func (s *S3Storage) Store(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *S3Storage) URL(ctx context.Context, key string) (string, error) {
	if s.externalURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.externalURL, s.bucket, key), nil
	}

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignExpiry, nil)
	if err != nil {
		return "", err
	}
	return presignedURL.String(), nil
}
