package websocket

import (
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4 * 1024
	sendBufferSize = 256
)

// WatchFunc reports whether the client's user may follow draftID.
type WatchFunc func(draftID string) bool

type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	userID        string
	canWatch      WatchFunc
	send          chan interface{}
	subscriptions map[string]bool
	mu            sync.RWMutex
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, canWatch WatchFunc) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		userID:        userID,
		canWatch:      canWatch,
		send:          make(chan interface{}, sendBufferSize),
		subscriptions: make(map[string]bool),
	}
}

func (c *Client) Subscribe(draftID string) bool {
	if c.canWatch != nil && !c.canWatch(draftID) {
		log.Debug().
			Str("userId", c.userID).
			Str("draftId", draftID).
			Msg("[WS] Subscription refused")
		return false
	}

	c.mu.Lock()
	c.subscriptions[draftID] = true
	c.mu.Unlock()

	c.hub.Subscribe(c, draftID)
	return true
}

func (c *Client) Unsubscribe(draftID string) {
	c.mu.Lock()
	delete(c.subscriptions, draftID)
	c.mu.Unlock()

	c.hub.Unsubscribe(c, draftID)
}

func (c *Client) IsSubscribed(draftID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[draftID]
}

func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]string, 0, len(c.subscriptions))
	for draftID := range c.subscriptions {
		subs = append(subs, draftID)
	}
	return subs
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg IncomingMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().Str("userId", c.userID).Err(err).Msg("[WS] Read error")
			} else {
				log.Debug().Str("userId", c.userID).Msg("[WS] Client disconnected")
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		if msg.DraftID == "" {
			return
		}
		if !c.Subscribe(msg.DraftID) {
			c.send <- &OutgoingMessage{Type: MessageTypeError, DraftID: msg.DraftID, Error: "draft not found"}
		}

	case MessageTypeUnsubscribe:
		if msg.DraftID != "" {
			c.Unsubscribe(msg.DraftID)
		}

	case MessageTypePing:
		c.send <- &OutgoingMessage{Type: MessageTypePong}

	default:
		log.Debug().Str("type", string(msg.Type)).Msg("[WS] Unknown message type")
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				log.Debug().Str("userId", c.userID).Err(err).Msg("[WS] Write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Str("userId", c.userID).Err(err).Msg("[WS] Ping error")
				return
			}
		}
	}
}
