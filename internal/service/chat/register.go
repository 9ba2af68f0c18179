package chat

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/campusmatch/backend/internal/db"
	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/server"
)

// Registrar ties the chat service into the HTTP server
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for an already-wired chat service.
// The service is built by the caller because it is shared with the realtime
// gateway.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the chat routes to the router
func (r *Registrar) Register(router *mux.Router) {
	h := &handlers{svc: r.svc}

	router.HandleFunc("/chat/message", h.send).Methods(http.MethodPost)
	router.HandleFunc("/chat/read/{matchId}", h.markRead).Methods(http.MethodPut)
	router.HandleFunc("/chat/conversations", h.conversations).Methods(http.MethodGet)
	router.HandleFunc("/chat/conversation/{matchId}", h.history).Methods(http.MethodGet)
}

type handlers struct {
	svc *Service
}

type sendRequest struct {
	MatchID     string `json:"matchId"`
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

type messageView struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"matchId"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newMessageView(m *db.Message) messageView {
	return messageView{
		ID:          m.ID,
		MatchID:     m.MatchID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Read:        m.Read,
		CreatedAt:   m.CreatedAt,
	}
}

func (h *handlers) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteHTTP(w, apperr.Validation("bad_body", "request body must be valid JSON"))
		return
	}

	msg, err := h.svc.SendMessage(r.Context(), server.UserID(r.Context()), req.MatchID, req.RecipientID, req.Content)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": newMessageView(msg)})
}

func (h *handlers) markRead(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	count, err := h.svc.MarkRead(r.Context(), server.UserID(r.Context()), matchID)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (h *handlers) conversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.svc.Conversations(r.Context(), server.UserID(r.Context()))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	type item struct {
		MatchID     string       `json:"matchId"`
		Partner     partnerView  `json:"partner"`
		LastMessage *messageView `json:"lastMessage"`
		Unread      int64        `json:"unread"`
		UpdatedAt   time.Time    `json:"updatedAt"`
	}
	items := make([]item, 0, len(conversations))
	for i := range conversations {
		c := &conversations[i]
		it := item{
			MatchID:   c.Match.ID,
			Partner:   newPartnerView(&c.Partner),
			Unread:    c.Unread,
			UpdatedAt: c.UpdatedAt,
		}
		if c.LastMessage != nil {
			view := newMessageView(c.LastMessage)
			it.LastMessage = &view
		}
		items = append(items, it)
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": items})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	var token *string
	if v := r.URL.Query().Get("cursor"); v != "" {
		token = &v
	}

	page, err := h.svc.History(r.Context(), server.UserID(r.Context()), matchID, token, limit)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	messages := make([]messageView, 0, len(page.Messages))
	for i := range page.Messages {
		messages = append(messages, newMessageView(&page.Messages[i]))
	}

	body := map[string]any{
		"matchId":  matchID,
		"messages": messages,
		"total":    page.Total,
	}
	if page.NextToken != nil {
		body["nextCursor"] = *page.NextToken
	}
	writeJSON(w, http.StatusOK, body)
}

type partnerView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Bio       string `json:"bio"`
	Major     string `json:"major"`
	Campus    string `json:"campus"`
	Age       int    `json:"age"`
}

func newPartnerView(u *db.User) partnerView {
	return partnerView{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Major:     u.Major,
		Campus:    u.Campus,
		Age:       u.Age,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
