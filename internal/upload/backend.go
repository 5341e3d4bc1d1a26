package upload

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

const DefaultMaxFileSize int64 = 200 * 1024 * 1024

// Backend stores uploaded media bytes and resolves the durable URL that is
// registered with the media service.
type Backend interface {
	Store(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

var (
	_ Backend = (*LocalStorage)(nil)
	_ Backend = (*S3Storage)(nil)
)

type BackendType string

const (
	BackendTypeLocal BackendType = "local"
	BackendTypeS3    BackendType = "s3"
)

type BackendConfig struct {
	Type        BackendType `mapstructure:"type"`
	LocalPath   string      `mapstructure:"localPath"`
	S3Endpoint  string      `mapstructure:"s3Endpoint"`
	S3Bucket    string      `mapstructure:"s3Bucket"`
	S3AccessKey string      `mapstructure:"s3AccessKey"`
	S3SecretKey string      `mapstructure:"s3SecretKey"`
	S3Region    string      `mapstructure:"s3Region"`
	S3UseSSL    bool        `mapstructure:"s3UseSSL"`
	ExternalURL string      `mapstructure:"externalUrl"`
	MaxFileSize int64       `mapstructure:"maxFileSize"`
}

func NewBackend(ctx context.Context, config *BackendConfig) (Backend, error) {
	switch config.Type {
	case BackendTypeS3:
		return NewS3Storage(ctx, config)
	default:
		return NewLocalStorage(config)
	}
}
