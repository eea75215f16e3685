// Package dashboard serves a small monitoring UI and JSON API over the
// job store.
package dashboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"queuectl/internal/store"
)

type Server struct {
	store  *store.Store
	port   int
	logger *slog.Logger
}

func NewServer(st *store.Store, port int, logger *slog.Logger) *Server {
	return &Server{store: st, port: port, logger: logger}
}

// Start blocks serving HTTP until the process exits.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/jobs", s.handleJobs)
		r.Get("/executions", s.handleExecutions)
	})

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("dashboard listening", slog.String("addr", addr))
	return http.ListenAndServe(addr, r)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountsByState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	result := make(map[string]int, len(counts))
	for state, count := range counts {
		result[string(state)] = count
	}
	writeJSON(w, result)
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	executions, err := s.store.RecentExecutions(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if executions == nil {
		executions = []store.Execution{}
	}
	writeJSON(w, executions)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
