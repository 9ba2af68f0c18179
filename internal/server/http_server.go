package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/campusmatch/backend/internal/config"
	"github.com/campusmatch/backend/internal/token"
)

// Server groups the HTTP surface into three tiers: root routes (health,
// websocket upgrade, which authenticates itself), public API routes (auth)
// and protected API routes behind the Bearer middleware.
type Server struct {
	cfg       *config.Config
	root      *mux.Router
	public    *mux.Router
	protected *mux.Router
}

// New builds the router skeleton and wires the auth middleware.
func New(cfg *config.Config, verifier token.Verifier) *Server {
	root := mux.NewRouter()

	root.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	public := root.PathPrefix("/api").Subrouter()

	protected := public.NewRoute().Subrouter()
	protected.Use(Auth(verifier))

	return &Server{cfg: cfg, root: root, public: public, protected: protected}
}

// Root registers services on the root router (no /api prefix, no middleware).
func (s *Server) Root(registrars ...Registrar) {
	for _, r := range registrars {
		r.Register(s.root)
	}
}

// Public registers services under /api without authentication.
func (s *Server) Public(registrars ...Registrar) {
	for _, r := range registrars {
		r.Register(s.public)
	}
}

// Protected registers services under /api behind the Bearer middleware.
func (s *Server) Protected(registrars ...Registrar) {
	for _, r := range registrars {
		r.Register(s.protected)
	}
}

// Start boots the HTTP server with CORS and blocks until it exits.
func (s *Server) Start() error {
	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(s.root)

	addr := s.cfg.HTTP.Host + ":" + s.cfg.HTTP.Port
	return http.ListenAndServe(addr, handler)
}

// Handler exposes the assembled route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.root
}
