package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prappser/prappser_composer/internal/media"
	"github.com/rs/zerolog/log"
)

// Uploader sends a local file to the binary-upload service and returns the
// durable URL. onProgress receives whole percentages in [0, 100].
type Uploader interface {
	Upload(ctx context.Context, f *media.File, onProgress func(percent int)) (string, error)
}

// StorageUploader implements Uploader on top of a Backend.
type StorageUploader struct {
	backend     Backend
	prefix      string
	maxFileSize int64
	observer    Observer
	now         func() time.Time
}

func NewStorageUploader(backend Backend, prefix string, maxFileSize int64, observer Observer) *StorageUploader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &StorageUploader{
		backend:     backend,
		prefix:      prefix,
		maxFileSize: maxFileSize,
		observer:    observer,
		now:         time.Now,
	}
}

func (u *StorageUploader) Upload(ctx context.Context, f *media.File, onProgress func(percent int)) (string, error) {
	started := time.Now()
	url, err := u.upload(ctx, f, onProgress)
	u.observer.RecordUpload(time.Since(started), uint64(f.Size), err)
	return url, err
}

func (u *StorageUploader) upload(ctx context.Context, f *media.File, onProgress func(percent int)) (string, error) {
	if f.Size > u.maxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max: %d)", f.Size, u.maxFileSize)
	}

	file, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer file.Close()

	key := buildObjectKey(u.prefix, f.Name, f.ContentType, u.now())
	reader := newProgressReader(file, f.Size, onProgress)

	if err := u.backend.Store(ctx, key, reader, f.Size, f.ContentType); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", f.Name, err)
	}
	reader.finish()

	url, err := u.backend.URL(ctx, key)
	if err != nil {
		if delErr := u.backend.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("[UPLOAD] Failed to remove orphaned object")
		}
		return "", fmt.Errorf("failed to resolve url for %s: %w", f.Name, err)
	}

	log.Debug().
		Str("key", key).
		Int64("size", f.Size).
		Msg("[UPLOAD] Stored media object")

	return url, nil
}

// buildObjectKey lays objects out as <prefix>/<yyyy>/<mm>/<uuid><ext>.
func buildObjectKey(prefix, filename, contentType string, now time.Time) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = media.ExtensionFor(contentType)
	}
	if prefix == "" {
		prefix = "anonymous"
	}
	return fmt.Sprintf("%s/%s/%s/%s%s", prefix, now.Format("2006"), now.Format("01"), uuid.NewString(), ext)
}

type progressReader struct {
	reader     io.Reader
	total      int64
	read       int64
	last       int
	onProgress func(int)
	once       sync.Once
}

func newProgressReader(reader io.Reader, total int64, onProgress func(int)) *progressReader {
	return &progressReader{reader: reader, total: total, last: -1, onProgress: onProgress}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.report(r.percent())
	}
	return n, err
}

func (r *progressReader) percent() int {
	if r.total <= 0 {
		return 0
	}
	p := int(r.read * 100 / r.total)
	if p > 100 {
		p = 100
	}
	return p
}

func (r *progressReader) report(percent int) {
	if r.onProgress == nil || percent <= r.last {
		return
	}
	r.last = percent
	r.onProgress(percent)
}

func (r *progressReader) finish() {
	r.once.Do(func() { r.report(100) })
}
