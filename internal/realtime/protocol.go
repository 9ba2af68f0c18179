package realtime

import (
	"encoding/json"
	"time"

	"github.com/campusmatch/backend/internal/db"
)

// Wire events.
const (
	EventMessageSend = "message:send" // client -> server, acked
	EventMessageAck  = "message:ack"  // server -> sender connection
	EventMessageNew  = "message:new"  // server -> recipient and match room
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// SendPayload is the client request to send a chat message.
type SendPayload struct {
	MatchID     string `json:"matchId"`
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

// MessagePayload is the full message projection pushed to clients.
type MessagePayload struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"matchId"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AckPayload reports the outcome of a message:send back on the same
// connection.
type AckPayload struct {
	OK      bool            `json:"ok"`
	Code    string          `json:"code,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message *MessagePayload `json:"message,omitempty"`
}

func messagePayload(m *db.Message) *MessagePayload {
	return &MessagePayload{
		ID:          m.ID,
		MatchID:     m.MatchID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Read:        m.Read,
		CreatedAt:   m.CreatedAt,
	}
}

func marshalEnvelope(event string, payload any) []byte {
	raw, _ := json.Marshal(payload)
	out, _ := json.Marshal(Envelope{Event: event, Payload: raw})
	return out
}
