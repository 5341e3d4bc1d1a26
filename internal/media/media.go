package media

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// KindOf reports the media kind for a content type. Only image/* and video/* are media.
func KindOf(contentType string) (Kind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage, true
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, true
	default:
		return "", false
	}
}

// File is a locally selected file that has not been uploaded yet.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Path        string `json:"-"`
}

func (f *File) Kind() (Kind, bool) {
	return KindOf(f.ContentType)
}

func (f *File) IsVideo() bool {
	kind, ok := f.Kind()
	return ok && kind == KindVideo
}

func (f *File) Open() (*os.File, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	return file, nil
}

// NewFile describes the file at path. An empty or generic contentType is replaced
// with one derived from the extension, then from the file's first bytes.
func NewFile(path, name, contentType string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if name == "" {
		name = filepath.Base(path)
	}

	file := &File{
		Name:        name,
		ContentType: normalizeContentType(contentType),
		Size:        info.Size(),
		Path:        path,
	}
	if file.ContentType == "" {
		file.ContentType, err = detectContentType(path, name)
		if err != nil {
			return nil, err
		}
	}
	return file, nil
}

func normalizeContentType(contentType string) string {
	if contentType == "" || contentType == "application/octet-stream" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func detectContentType(path, name string) (string, error) {
	if byExt := normalizeContentType(mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))); byExt != "" {
		return byExt, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return normalizeContentType(http.DetectContentType(head[:n])), nil
}

// ExtensionFor returns a file extension for a known media content type.
func ExtensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime", "video/mov":
		return ".mov"
	default:
		return ""
	}
}
