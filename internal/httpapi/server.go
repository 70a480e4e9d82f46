package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vecindario/discovery/internal/logging"
	"github.com/vecindario/discovery/internal/session"
)

// Server exposes discovery sessions to feed views over HTTP.
type Server struct {
	registry *session.Registry
	logger   *logging.Logger
	server   *http.Server
}

// New creates the HTTP server over a session registry.
func New(registry *session.Registry, logger *logging.Logger) *Server {
	return &Server{
		registry: registry,
		logger:   logger,
	}
}

// Handler builds the route table. Exposed separately so tests can drive
// it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/sessions", s.corsMiddleware(s.handleSessions))
	mux.HandleFunc("/api/sessions/", s.corsMiddleware(s.handleSessionSubtree))
	mux.HandleFunc("/api/geo/bounding-circle", s.corsMiddleware(s.handleBoundingCircle))
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", logging.WithField("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
