package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker = sharedobs.ReadinessChecker

// ReadinessFunc adapts a function to ReadinessChecker.
type ReadinessFunc func(ctx context.Context) error

// CheckReadiness calls f.
func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// Runner starts coding runs and inspects quadrants.
type Runner interface {
	RunLocation(ctx context.Context, source, dest string) (pipeline.RunReport, error)
	Inspect(ctx context.Context, prefix string) (pipeline.QuadrantUsage, error)
}

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Server exposes health, readiness, metrics, and the coding API.
type Server struct {
	httpServer *http.Server
	runner     Runner
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 routes.
func NewServer(addr string, ready ReadinessChecker, runner Runner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute, // runs are synchronous
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/runs", s.handleRun)
	mux.HandleFunc("GET /v1/quadrants/{prefix}", s.handleQuadrant)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody("bad_request", "invalid JSON body: "+err.Error()))
		return
	}
	if req.Source == "" || req.Destination == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody("bad_request", "source and destination are required"))
		return
	}

	report, err := s.runner.RunLocation(r.Context(), req.Source, req.Destination)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleQuadrant(w http.ResponseWriter, r *http.Request) {
	usage, err := s.runner.Inspect(r.Context(), r.PathValue("prefix"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, usage)
}

// writeError maps domain error kinds to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		status, kind = http.StatusConflict, "run_in_progress"
	case errors.Is(err, domain.ErrQuadrantExhausted):
		status, kind = http.StatusUnprocessableEntity, "quadrant_exhausted"
	case errors.Is(err, domain.ErrValidation):
		status, kind = http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, domain.ErrConnection):
		status, kind = http.StatusServiceUnavailable, "connection"
	case errors.Is(err, domain.ErrImport):
		status, kind = http.StatusBadGateway, "import"
	case errors.Is(err, domain.ErrTemplateMissing), errors.Is(err, domain.ErrTemplateCopy):
		kind = "template"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "kind", kind, "error", err)
	}
	sharedobs.WriteJSON(w, status, errorBody(kind, err.Error()))
}

func errorBody(kind, msg string) map[string]string {
	return map[string]string{"kind": kind, "error": msg}
}
