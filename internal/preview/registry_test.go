package preview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prappser/prappser_composer/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func localFile(t *testing.T, name, contentType string, data []byte) *media.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return &media.File{Name: name, ContentType: contentType, Size: int64(len(data)), Path: path}
}

func TestRegistry_CreateAndRevoke(t *testing.T) {
	// given
	registry := NewRegistry("http://localhost:8080/")
	f := localFile(t, "a.jpg", "image/jpeg", []byte("jpeg"))

	// when
	url, err := registry.Create(f)
	require.NoError(t, err)

	// then
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/previews/"))
	assert.Equal(t, 1, registry.Active())
	assert.True(t, registry.Revoke(url))
	assert.False(t, registry.Revoke(url), "second revoke must be a no-op")
	assert.Equal(t, 0, registry.Active())
}

func TestRegistry_CreateRequiresPath(t *testing.T) {
	registry := NewRegistry("")

	_, err := registry.Create(&media.File{Name: "x.jpg"})

	assert.Error(t, err)
}

func TestRegistry_RevokeUnknown(t *testing.T) {
	registry := NewRegistry("")

	assert.False(t, registry.Revoke("https://cdn.test/remote.jpg"))
	assert.False(t, registry.Revoke("/previews/does-not-exist"))
}

func TestRegistry_Serve(t *testing.T) {
	// given
	registry := NewRegistry("")
	f := localFile(t, "b.png", "image/png", []byte("png-bytes"))
	url, err := registry.Create(f)
	require.NoError(t, err)
	id := idFromURL(url)

	// when
	var req fasthttp.Request
	req.SetRequestURI("/previews/" + id)
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	ctx.SetUserValue("previewID", id)
	registry.Serve(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "image/png", string(ctx.Response.Header.ContentType()))

	registry.Revoke(url)
	var after fasthttp.RequestCtx
	after.Init(&req, nil, nil)
	after.SetUserValue("previewID", id)
	registry.Serve(&after)
	assert.Equal(t, fasthttp.StatusNotFound, after.Response.StatusCode())
}
