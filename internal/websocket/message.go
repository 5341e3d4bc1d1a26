package websocket

type MessageType string

const (
	MessageTypeConnected   MessageType = "connected"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeProgress    MessageType = "progress"
	MessageTypeState       MessageType = "state"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
)

type IncomingMessage struct {
	Type    MessageType `json:"type"`
	DraftID string      `json:"draftId,omitempty"`
}

type OutgoingMessage struct {
	Type    MessageType `json:"type"`
	UserID  string      `json:"userId,omitempty"`
	DraftID string      `json:"draftId,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ProgressMessage struct {
	Type    MessageType `json:"type"`
	DraftID string      `json:"draftId"`
	Slot    int         `json:"slot"`
	Percent int         `json:"percent"`
}

type StateMessage struct {
	Type    MessageType `json:"type"`
	DraftID string      `json:"draftId"`
	State   string      `json:"state"`
}

type BroadcastMessage struct {
	DraftID string
	Payload interface{}
}
