package preview

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prappser/prappser_composer/internal/media"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const pathPrefix = "/previews/"

// Registry issues short-lived preview URLs for local files and serves them
// until they are revoked.
type Registry struct {
	baseURL string
	mu      sync.RWMutex
	files   map[string]*media.File
}

func NewRegistry(externalURL string) *Registry {
	return &Registry{
		baseURL: strings.TrimRight(externalURL, "/"),
		files:   make(map[string]*media.File),
	}
}

func (r *Registry) Create(f *media.File) (string, error) {
	if f == nil || f.Path == "" {
		return "", fmt.Errorf("preview requires a local file")
	}

	id := uuid.NewString()

	r.mu.Lock()
	r.files[id] = f
	r.mu.Unlock()

	return r.baseURL + pathPrefix + id, nil
}

// Revoke releases a preview URL. It reports false when the URL was unknown or already revoked.
func (r *Registry) Revoke(previewURL string) bool {
	id := idFromURL(previewURL)
	if id == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		log.Warn().Str("url", previewURL).Msg("[PREVIEW] Revoke of unknown preview")
		return false
	}
	delete(r.files, id)
	return true
}

func (r *Registry) Lookup(id string) (*media.File, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[id]
	return f, ok
}

func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// Serve handles GET /previews/{id}
func (r *Registry) Serve(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("previewID").(string)
	f, ok := r.Lookup(id)
	if !ok {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}

	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SendFile(f.Path)
	ctx.SetContentType(f.ContentType)
}

func idFromURL(previewURL string) string {
	idx := strings.LastIndex(previewURL, pathPrefix)
	if idx < 0 {
		return ""
	}
	return previewURL[idx+len(pathPrefix):]
}
