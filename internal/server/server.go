// Package server exposes the status and control endpoints of the daemon.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jobmate/ingest-service/internal/pipeline"
)

const serviceName = "ingest-service"

// Runner is the part of the orchestrator the endpoints drive.
type Runner interface {
	Start(ctx context.Context) error
	LastSummary() (pipeline.Summary, bool)
}

// Server serves the HTTP endpoints.
type Server struct {
	runner  Runner
	version string
	router  chi.Router
	runCtx  context.Context
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the router.
func New(runner Runner, version string) *Server {
	s := &Server{runner: runner, version: version, runCtx: context.Background()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.health)
	r.Get("/runs/last", s.lastRun)
	r.Post("/runs", s.startRun)
	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled. Runs started over
// HTTP inherit ctx so they observe the same stop signal.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.runCtx = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[server] Shutdown error: %v", err)
		}
	}()

	log.Printf("[%s] Listening on %s", serviceName, addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Service: serviceName,
		Version: s.version,
	})
}

func (s *Server) lastRun(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.runner.LastSummary()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no completed run yet"})
		return
	}
	sum.Records = nil
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	err := s.runner.Start(s.runCtx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}
