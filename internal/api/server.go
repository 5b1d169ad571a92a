package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/themis/internal/persona"
	"github.com/MikeSquared-Agency/themis/internal/pipeline"
)

type Server struct {
	router   *chi.Mux
	port     int
	engine   *pipeline.Engine
	catalog  *persona.Catalog
	personas *persona.StateManager
}

func NewServer(port int, apiToken string, engine *pipeline.Engine, catalog *persona.Catalog, personas *persona.StateManager) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		engine:   engine,
		catalog:  catalog,
		personas: personas,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/themis/status", s.status)

	router.Route("/api/v1/themis", func(r chi.Router) {
		r.Get("/personas", s.listPersonas)
		r.Get("/personas/active", s.activePersona)
		r.Get("/transitions", s.listTransitions)
		r.Get("/stats", s.stats)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Post("/decisions", s.evaluateDecision)
			r.Post("/decisions/{id}/contributions", s.resolveDecision)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests missing the configured bearer token.
// An empty token leaves the routes open.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"agent":  "themis",
		"status": "active",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
