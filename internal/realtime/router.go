package realtime

import (
	"log/slog"

	"github.com/campusmatch/backend/internal/db"
)

// Router fans a newly persisted message out to live connections.
//
// Fan-out is a pure function of the hub's current state: a direct push to
// every connection of the recipient, plus a broadcast to the match room
// (covering other devices and tabs of either participant). Delivery is
// best-effort and fire-and-forget; an offline recipient reads the message
// from conversation history on next fetch.
type Router struct {
	hub *Hub
	log *slog.Logger
}

func NewRouter(hub *Hub, log *slog.Logger) *Router {
	return &Router{hub: hub, log: log}
}

// MessageCreated delivers a persisted message. Satisfies the chat service's
// delivery dependency.
func (r *Router) MessageCreated(msg *db.Message) {
	payload := marshalEnvelope(EventMessageNew, messagePayload(msg))

	direct := r.hub.SendToUser(msg.RecipientID, payload)
	room := r.hub.Broadcast(msg.MatchID, payload)

	r.log.Debug("message delivered",
		"match", msg.MatchID,
		"recipient", msg.RecipientID,
		"direct_connections", direct,
		"room_connections", room,
	)
}
