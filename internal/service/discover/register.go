package discover

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/campusmatch/backend/internal/app"
	"github.com/campusmatch/backend/internal/db"
	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/server"
)

// Registrar ties the discover service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the discover service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the discover routes to the router
func (r *Registrar) Register(router *mux.Router) {
	svc := NewDiscoverService(r.appCtx)
	h := &handlers{svc: svc}

	router.HandleFunc("/discover/next", h.next).Methods(http.MethodGet)
	router.HandleFunc("/discover/swipe", h.swipe).Methods(http.MethodPost)
	router.HandleFunc("/matches", h.matches).Methods(http.MethodGet)
}

type handlers struct {
	svc *Service
}

type swipeRequest struct {
	TargetID string `json:"targetId"`
	Kind     string `json:"kind"`
}

type profileView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Bio       string `json:"bio"`
	Major     string `json:"major"`
	Campus    string `json:"campus"`
	Age       int    `json:"age"`
}

func newProfileView(u *db.User) profileView {
	return profileView{
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

func (h *handlers) swipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteHTTP(w, apperr.Validation("bad_body", "request body must be valid JSON"))
		return
	}

	res, err := h.svc.Swipe(r.Context(), server.UserID(r.Context()), req.TargetID, req.Kind)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	body := map[string]any{"matched": res.Matched}
	if res.Matched {
		body["match"] = map[string]any{
			"id":        res.Match.ID,
			"partner":   newProfileView(res.Target),
			"createdAt": res.Match.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) next(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.NextProfile(r.Context(), server.UserID(r.Context()))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusOK, map[string]any{"profile": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": newProfileView(profile)})
}

func (h *handlers) matches(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.Matches(r.Context(), server.UserID(r.Context()))
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	type matchItem struct {
		ID        string      `json:"id"`
		Partner   profileView `json:"partner"`
		CreatedAt time.Time   `json:"createdAt"`
	}
	items := make([]matchItem, 0, len(views))
	for i := range views {
		items = append(items, matchItem{
			ID:        views[i].Match.ID,
			Partner:   newProfileView(&views[i].Partner),
			CreatedAt: views[i].Match.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": items, "total": len(items)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
