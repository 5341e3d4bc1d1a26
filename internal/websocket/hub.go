package websocket

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub fans draft progress and state changes out to subscribed UI clients.
type Hub struct {
	clients    map[*Client]bool
	byDraft    map[string][]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byDraft:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToDraft(message)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	log.Info().
		Str("userId", client.userID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	for _, draftID := range client.Subscriptions() {
		h.removeFromDraftSubscribers(client, draftID)
	}

	log.Info().
		Str("userId", client.userID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client unregistered")
}

func (h *Hub) removeFromDraftSubscribers(client *Client, draftID string) {
	draftClients := h.byDraft[draftID]
	for i, c := range draftClients {
		if c == client {
			h.byDraft[draftID] = append(draftClients[:i], draftClients[i+1:]...)
			break
		}
	}
	if len(h.byDraft[draftID]) == 0 {
		delete(h.byDraft, draftID)
	}
}

func (h *Hub) Subscribe(client *Client, draftID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.byDraft[draftID] {
		if c == client {
			return
		}
	}
	h.byDraft[draftID] = append(h.byDraft[draftID], client)

	log.Debug().
		Str("draftId", draftID).
		Int("subscribers", len(h.byDraft[draftID])).
		Msg("[WS] Draft subscription added")
}

func (h *Hub) Unsubscribe(client *Client, draftID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromDraftSubscribers(client, draftID)

	log.Debug().
		Str("draftId", draftID).
		Int("subscribers", len(h.byDraft[draftID])).
		Msg("[WS] Draft subscription removed")
}

func (h *Hub) broadcastToDraft(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.byDraft[msg.DraftID]
	for _, client := range clients {
		select {
		case client.send <- msg.Payload:
		default:
			log.Warn().
				Str("userId", client.userID).
				Str("draftId", msg.DraftID).
				Msg("[WS] Client send buffer full, dropping message")
		}
	}
}

// Register returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	if h.stopped() {
		return false
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	if h.stopped() {
		return
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// PublishProgress queues an upload progress update. It never blocks the
// uploader; updates are dropped when the hub is saturated.
func (h *Hub) PublishProgress(draftID string, slot, percent int) {
	h.publish(draftID, &ProgressMessage{
		Type:    MessageTypeProgress,
		DraftID: draftID,
		Slot:    slot,
		Percent: percent,
	})
}

func (h *Hub) PublishState(draftID, state string) {
	h.publish(draftID, &StateMessage{
		Type:    MessageTypeState,
		DraftID: draftID,
		State:   state,
	})
}

func (h *Hub) publish(draftID string, payload interface{}) {
	select {
	case h.broadcast <- &BroadcastMessage{DraftID: draftID, Payload: payload}:
	default:
		log.Warn().Str("draftId", draftID).Msg("[WS] Broadcast queue full, dropping message")
	}
}

func (h *Hub) GetStats() (totalClients, totalSubscriptions int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalClients = len(h.clients)
	for _, clients := range h.byDraft {
		totalSubscriptions += len(clients)
	}
	return
}
