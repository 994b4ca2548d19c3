// Package api exposes a small status endpoint for a running crawl: health
// probe plus live run counters.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/buslistings/bus-scraper/internal/crawl"
)

// StatsProvider snapshots the counters of the running crawl.
type StatsProvider interface {
	Stats() crawl.Summary
}

type Server struct {
	stats  StatsProvider
	logger *slog.Logger
}

func NewServer(stats StatsProvider, logger *slog.Logger) *Server {
	return &Server{stats: stats, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary := s.stats.Stats()

	s.respondJSON(w, http.StatusOK, map[string]any{
		"run_id":           summary.RunID,
		"succeeded":        summary.Succeeded,
		"failed":           summary.PermanentlyFailed,
		"parse_errors":     summary.ParseErrors,
		"persisted":        summary.RecordsPersisted,
		"persist_failures": summary.PersistFailures,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
