package middleware

import (
	"regexp"
	"strings"

	"github.com/valyala/fasthttp"
)

var localhostOrigin = regexp.MustCompile(`^https?://localhost:\d+$`)

// CORSMiddleware lets the composer UI call the service from another origin.
// Allowed origins are exact values, "*", or "<scheme>://<host>:*" for any port.
type CORSMiddleware struct {
	allowedOrigins []string
	wildcard       bool
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
		wildcard:       len(allowedOrigins) == 1 && allowedOrigins[0] == "*",
	}
}

func (cm *CORSMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		if cm.AllowsOrigin(origin) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
		} else if cm.wildcard {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		}

		ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, "+UserIDHeader)
		ctx.Response.Header.Set("Access-Control-Max-Age", "86400")

		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

// AllowsOrigin reports whether origin may receive credentialed responses. It
// also gates websocket upgrades.
func (cm *CORSMiddleware) AllowsOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range cm.allowedOrigins {
		if allowed == origin {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, ":*"); ok && anyPort(prefix, origin) {
			return true
		}
	}
	if cm.wildcard {
		return localhostOrigin.MatchString(origin)
	}
	return false
}

func anyPort(prefix, origin string) bool {
	port, ok := strings.CutPrefix(origin, prefix+":")
	if !ok || port == "" {
		return false
	}
	for _, r := range port {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
