// Package statusapi serves the read-only pipeline status over HTTP.
package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bcsurf2822/ragpipe/internal/core/ports/driving"
	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Server exposes /status and /health for one pipeline instance. It only
// reads the pipeline's status snapshot; it never drives cycles.
type Server struct {
	pipeline driving.Pipeline
	httpSrv  *http.Server
}

// New creates a status server listening on the given port.
func New(pipeline driving.Pipeline, port int) *Server {
	s := &Server{pipeline: pipeline}
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// handleStatus serves the pipeline status snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.pipeline.Status()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		logger.Debug("[statusapi] encoding status: %v", err)
	}
}

// handleHealth is a plain liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "OK")
}

// Start serves until Stop is called. It returns on listener failure,
// which the caller treats as non-fatal: a pipeline without a status
// endpoint still syncs.
func (s *Server) Start() error {
	logger.Info("[statusapi] listening on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
