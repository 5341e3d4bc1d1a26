package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/valyala/fasthttp"
)

// LocalStorage writes objects below a base directory and serves them from
// ExternalURL + "/media/".
type LocalStorage struct {
	basePath    string
	externalURL string
}

func NewLocalStorage(config *BackendConfig) (*LocalStorage, error) {
	basePath := config.LocalPath
	if basePath == "" {
		basePath = "./media"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	return &LocalStorage{
		basePath:    basePath,
		externalURL: strings.TrimRight(config.ExternalURL, "/"),
	}, nil
}

func (s *LocalStorage) Store(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(file, readerWithContext(ctx, reader)); err != nil {
		os.Remove(fullPath)
		return err
	}

	return nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// exists guards URL so only stored keys are handed out.
func (s *LocalStorage) exists(key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStorage) URL(ctx context.Context, key string) (string, error) {
	exists, err := s.exists(key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Sprintf("%s/media/%s", s.externalURL, filepath.ToSlash(key)), nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(s.basePath, clean), nil
}

type ctxReader struct {
	ctx    context.Context
	reader io.Reader
}

func readerWithContext(ctx context.Context, reader io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, reader: reader}
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(p)
}

// Handler serves stored objects under /media/.
func (s *LocalStorage) Handler() fasthttp.RequestHandler {
	fs := &fasthttp.FS{
		Root:               s.basePath,
		GenerateIndexPages: false,
		AcceptByteRange:    true,
		PathRewrite:        fasthttp.NewPathSlashesStripper(1),
	}
	return fs.NewRequestHandler()
}
