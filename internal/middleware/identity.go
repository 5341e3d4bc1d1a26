package middleware

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const UserIDHeader = "X-User-ID"

// IdentityMiddleware reads the caller's user id from X-User-ID. No
// authentication happens here; the id is only used to scope drafts and as the
// post's creator.
type IdentityMiddleware struct{}

func NewIdentityMiddleware() *IdentityMiddleware {
	return &IdentityMiddleware{}
}

func (im *IdentityMiddleware) RequireUser(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		userID := strings.TrimSpace(string(ctx.Request.Header.Peek(UserIDHeader)))
		if userID == "" {
			log.Debug().Str("path", string(ctx.Path())).Msg("Request without user id")
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}

		ctx.SetUserValue("userID", userID)

		handler(ctx)
	}
}
