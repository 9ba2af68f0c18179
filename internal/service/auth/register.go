package auth

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/campusmatch/backend/internal/app"
	"github.com/campusmatch/backend/internal/db"
	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/token"
)

// Registrar ties the auth service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
	tokens *token.Service
}

// NewRegistrar creates a new Registrar for the auth service
func NewRegistrar(appCtx *app.AppContext, tokens *token.Service) *Registrar {
	return &Registrar{appCtx: appCtx, tokens: tokens}
}

// Register attaches the auth routes to the router
func (r *Registrar) Register(router *mux.Router) {
	svc := NewAuthService(r.appCtx, r.tokens)
	h := &handlers{svc: svc}

	router.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
}

type handlers struct {
	svc *Service
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Bio       string `json:"bio"`
	Major     string `json:"major"`
	Campus    string `json:"campus"`
	Age       int    `json:"age"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Bio       string `json:"bio"`
	Major     string `json:"major"`
	Campus    string `json:"campus"`
	Age       int    `json:"age"`
}

func newAccountView(u *db.User) accountView {
	return accountView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Major:     u.Major,
		Campus:    u.Campus,
		Age:       u.Age,
	}
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteHTTP(w, apperr.Validation("bad_request", "invalid request body"))
		return
	}

	user, tok, err := h.svc.Register(r.Context(), RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Major:     req.Major,
		Campus:    req.Campus,
		Age:       req.Age,
	})
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  newAccountView(user),
		"token": tok,
	})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteHTTP(w, apperr.Validation("bad_request", "invalid request body"))
		return
	}

	user, tok, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apperr.WriteHTTP(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":  newAccountView(user),
		"token": tok,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
