package health

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestHealth_ReportsVersionAndCounts(t *testing.T) {
	// given
	open := 3
	endpoints := NewEndpoints("1.2.0", map[string]Gauge{
		"drafts":   func() int { return open },
		"previews": func() int { return 7 },
	})
	var ctx fasthttp.RequestCtx

	// when
	endpoints.Health(&ctx)

	// then
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var body HealthResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.0", body.Version)
	assert.Equal(t, map[string]int{"drafts": 3, "previews": 7}, body.Counts)
}

func TestHealth_OmitsCountsWithoutGauges(t *testing.T) {
	endpoints := NewEndpoints("dev", nil)
	var ctx fasthttp.RequestCtx

	endpoints.Health(&ctx)

	assert.NotContains(t, string(ctx.Response.Body()), "counts")
}
