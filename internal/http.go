package internal

import (
	"strings"

	"github.com/prappser/prappser_composer/internal/composer"
	"github.com/prappser/prappser_composer/internal/health"
	"github.com/prappser/prappser_composer/internal/middleware"
	"github.com/prappser/prappser_composer/internal/preview"
	"github.com/prappser/prappser_composer/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Handlers groups everything the router dispatches to. MediaFiles is only set
// for the local storage backend.
type Handlers struct {
	Drafts     *composer.Endpoints
	Health     *health.HealthEndpoints
	Previews   *preview.Registry
	WebSocket  *websocket.Handler
	MediaFiles fasthttp.RequestHandler
	Gatherer   prometheus.Gatherer
}

func NewRequestHandler(config *Config, h Handlers) fasthttp.RequestHandler {
	identity := middleware.NewIdentityMiddleware()
	corsMiddleware := middleware.NewCORSMiddleware(config.Server.AllowedOrigins)

	gatherer := h.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/health":
			h.Health.Health(ctx)
		case path == "/metrics":
			metricsHandler(ctx)
		case path == "/ws":
			h.WebSocket.HandleFastHTTP(ctx)

		case strings.HasPrefix(path, "/previews/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 && method == "GET" {
				ctx.SetUserValue("previewID", parts[2])
				h.Previews.Serve(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case strings.HasPrefix(path, "/media/") && h.MediaFiles != nil:
			if method == "GET" || method == "HEAD" {
				h.MediaFiles(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case path == "/drafts":
			if method == "POST" {
				identity.RequireUser(h.Drafts.OpenDraft)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/drafts/"):
			routeDraft(ctx, identity, h.Drafts, strings.Split(path, "/"), method)

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return corsMiddleware.Handle(handler)
}

// routeDraft dispatches /drafts/{id}[/...]; parts[0] is empty and parts[1] is "drafts".
func routeDraft(ctx *fasthttp.RequestCtx, identity *middleware.IdentityMiddleware, drafts *composer.Endpoints, parts []string, method string) {
	if len(parts) < 3 || parts[2] == "" {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	ctx.SetUserValue("draftID", parts[2])

	switch {
	case len(parts) == 3:
		switch method {
		case "GET":
			identity.RequireUser(drafts.GetDraft)(ctx)
		case "PUT":
			identity.RequireUser(drafts.UpdateDraft)(ctx)
		case "DELETE":
			identity.RequireUser(drafts.DiscardDraft)(ctx)
		default:
			ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		}

	case len(parts) == 4 && parts[3] == "media":
		if method == "POST" {
			identity.RequireUser(drafts.AddMedia)(ctx)
		} else {
			ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		}
	case len(parts) == 5 && parts[3] == "media":
		ctx.SetUserValue("itemID", parts[4])
		if method == "DELETE" {
			identity.RequireUser(drafts.RemoveMedia)(ctx)
		} else {
			ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		}

	case len(parts) == 4 && parts[3] == "submit":
		if method == "POST" {
			identity.RequireUser(drafts.Submit)(ctx)
		} else {
			ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		}
	case len(parts) == 4 && parts[3] == "progress":
		if method == "GET" {
			identity.RequireUser(drafts.Progress)(ctx)
		} else {
			ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		}

	default:
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	}
}
