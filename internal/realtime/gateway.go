package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/campusmatch/backend/internal/db"
	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/token"
)

// MatchSource enumerates the active matches a connection must be subscribed
// to on join.
type MatchSource interface {
	ActiveMatchIDs(ctx context.Context, userID string) ([]string, error)
}

// MessageSender is the chat contract the gateway invokes for message:send
// events. It behaves identically to the HTTP send path; only the
// acknowledgment transport differs.
type MessageSender interface {
	SendMessage(ctx context.Context, senderID, matchID, recipientID, content string) (*db.Message, error)
}

// Gateway accepts realtime connections, authenticates them before admission
// and wires each one into the hub.
//
// Per-connection lifecycle: the bearer credential is taken from the
// handshake (query parameter, Authorization header fallback) and verified
// before the upgrade completes, so a refused attempt creates no state.
// After admission the connection is registered in the hub and a background
// task subscribes it to every active match room; the connection is usable
// immediately while membership backfills.
type Gateway struct {
	hub      *Hub
	verifier token.Verifier
	matches  MatchSource
	chat     MessageSender
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, verifier token.Verifier, matches MatchSource, chat MessageSender, log *slog.Logger) *Gateway {
	return &Gateway{
		hub:      hub,
		verifier: verifier,
		matches:  matches,
		chat:     chat,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Register attaches the websocket endpoint to the router.
func (g *Gateway) Register(r *mux.Router) {
	r.HandleFunc("/ws", g.handleWS)
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	credential := bearerFromHandshake(r)
	if credential == "" {
		g.log.Warn("connection refused: no credential")
		apperr.WriteHTTP(w, apperr.Unauthenticated("token_missing", "access token not provided"))
		return
	}

	userID, err := g.verifier.Verify(credential)
	if err != nil {
		g.log.Warn("connection refused", "err", err)
		apperr.WriteHTTP(w, err)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		g.log.Warn("upgrade failed", "user", userID, "err", err)
		return
	}

	client := newClient(userID, ws)
	g.hub.Register(client)
	client.Start()
	g.subscribeMatches(client)

	g.log.Info("user connected", "user", userID, "connection", client.ID)

	g.readLoop(client)

	g.hub.Unregister(client)
	client.Close(websocket.CloseNormalClosure, "")
	g.log.Info("user disconnected", "user", userID, "connection", client.ID)
}

// subscribeMatches backfills the client's room memberships asynchronously.
// The returned channel closes when the backfill finishes, so callers and
// tests can await it; the handshake never does.
func (g *Gateway) subscribeMatches(c *Client) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ids, err := g.matches.ActiveMatchIDs(context.Background(), c.UserID)
		if err != nil {
			g.log.Error("failed to enumerate matches", "user", c.UserID, "err", err)
			return
		}
		for _, id := range ids {
			g.hub.Join(id, c)
		}
		g.log.Debug("joined match rooms", "user", c.UserID, "rooms", len(ids))
	}()
	return done
}

func (g *Gateway) readLoop(c *Client) {
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Event {
		case EventMessageSend:
			g.handleSend(c, env.Payload)
		default:
			// unknown events are ignored
		}
	}
}

// handleSend runs the shared chat contract and acks on the same connection.
func (g *Gateway) handleSend(c *Client, raw json.RawMessage) {
	var p SendPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		g.ack(c, &AckPayload{OK: false, Code: "bad_payload", Error: "malformed payload"})
		return
	}

	msg, err := g.chat.SendMessage(context.Background(), c.UserID, p.MatchID, p.RecipientID, p.Content)
	if err != nil {
		appErr := apperr.Map(err)
		g.ack(c, &AckPayload{OK: false, Code: appErr.Code, Error: appErr.Message})
		return
	}

	g.ack(c, &AckPayload{OK: true, Message: messagePayload(msg)})
}

func (g *Gateway) ack(c *Client, payload *AckPayload) {
	_ = c.Send(marshalEnvelope(EventMessageAck, payload))
}

// bearerFromHandshake extracts the credential from the token query parameter,
// falling back to a Bearer Authorization header.
func bearerFromHandshake(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
