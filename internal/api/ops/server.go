// Package ops serves the worker's operational endpoints: liveness, readiness,
// and distributed lock introspection.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LockInspector reports the state of named distributed locks.
type LockInspector interface {
	IsLocked(ctx context.Context, name string) bool
	LockTTL(ctx context.Context, name string) int64
}

// Server provides HTTP endpoints for the booking worker runtime.
type Server struct {
	locks LockInspector
	ready func(ctx context.Context) error
}

// NewServer creates an ops server. The ready func checks backing stores; nil
// means readyz always succeeds.
func NewServer(locks LockInspector, ready func(ctx context.Context) error) *Server {
	return &Server{locks: locks, ready: ready}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/locks/{name}", s.getLock)
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) getLock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "lock name is required")
		return
	}
	ctx := r.Context()
	respondJSON(w, http.StatusOK, map[string]any{
		"name":       name,
		"locked":     s.locks.IsLocked(ctx, name),
		"ttlSeconds": s.locks.LockTTL(ctx, name),
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}
