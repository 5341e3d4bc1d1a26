package websocket

import (
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// DraftAccess answers whether a user may watch a draft.
type DraftAccess interface {
	CanWatch(draftID, userID string) bool
}

// OriginPolicy gates upgrades by the Origin header.
type OriginPolicy interface {
	AllowsOrigin(origin string) bool
}

type Handler struct {
	hub      *Hub
	drafts   DraftAccess
	upgrader websocket.FastHTTPUpgrader
}

func NewHandler(hub *Hub, drafts DraftAccess, origins OriginPolicy) *Handler {
	return &Handler{
		hub:    hub,
		drafts: drafts,
		upgrader: websocket.FastHTTPUpgrader{
			CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
				origin := string(ctx.Request.Header.Peek("Origin"))
				return origin == "" || origins == nil || origins.AllowsOrigin(origin)
			},
		},
	}
}

// HandleFastHTTP upgrades GET /ws?draft=<id>. Browsers cannot set custom headers
// on websocket requests, so the user id may also come from the "user" query arg.
func (h *Handler) HandleFastHTTP(ctx *fasthttp.RequestCtx) {
	userID := strings.TrimSpace(string(ctx.Request.Header.Peek("X-User-ID")))
	if userID == "" {
		userID = string(ctx.QueryArgs().Peek("user"))
	}
	if userID == "" {
		log.Debug().Msg("[WS] Connection rejected: missing user id")
		ctx.Error("Unauthorized: missing user id", fasthttp.StatusUnauthorized)
		return
	}

	draftID := string(ctx.QueryArgs().Peek("draft"))
	if draftID != "" && !h.drafts.CanWatch(draftID, userID) {
		log.Debug().Str("draftId", draftID).Msg("[WS] Connection rejected: unknown draft")
		ctx.Error("Draft not found", fasthttp.StatusNotFound)
		return
	}

	canWatch := func(id string) bool {
		return h.drafts.CanWatch(id, userID)
	}

	err := h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := NewClient(h.hub, conn, userID, canWatch)
		if !h.hub.Register(client) {
			log.Debug().Str("userId", userID).Msg("[WS] Hub stopped, closing connection")
			conn.Close()
			return
		}
		if draftID != "" {
			client.Subscribe(draftID)
		}

		client.send <- &OutgoingMessage{
			Type:    MessageTypeConnected,
			UserID:  userID,
			DraftID: draftID,
		}

		log.Info().
			Str("userId", userID).
			Str("draftId", draftID).
			Msg("[WS] Client connected")

		go client.WritePump()
		client.ReadPump()
	})

	if err != nil {
		log.Error().Err(err).Msg("[WS] Failed to upgrade connection")
		return
	}
}
