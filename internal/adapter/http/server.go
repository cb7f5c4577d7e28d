// Package http serves the allocation service's operational endpoints:
// liveness, pipeline readiness, and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "grid-allocation"

// Readiness checks are bounded so a wedged pipeline cannot stall the probe.
const readinessTimeout = 2 * time.Second

// ReadinessChecker reports whether the allocation pipeline is ready to
// process requests.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the operational HTTP endpoints that run alongside the
// Kafka pipeline.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// statusResponse is the body for /healthz and /readyz.
type statusResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// NewServer creates an HTTP server reporting on the given pipeline.
func NewServer(addr string, pipeline ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz(pipeline))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("allocation http server listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.srv.Handler.ServeHTTP(w, r)
}

// handleHealthz reports process liveness only; it says nothing about
// whether requests are flowing.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, statusResponse{Service: serviceName, Status: "healthy"})
}

// handleReadyz asks the pipeline whether it has processed requests; until
// it has, load balancers should keep traffic away.
func (s *Server) handleReadyz(pipeline ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if err := pipeline.CheckReadiness(ctx); err != nil {
			s.respond(w, http.StatusServiceUnavailable, statusResponse{
				Service: serviceName,
				Status:  "not ready",
				Error:   err.Error(),
			})
			return
		}
		s.respond(w, http.StatusOK, statusResponse{Service: serviceName, Status: "ready"})
	}
}

func (s *Server) respond(w http.ResponseWriter, code int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("write status response failed", "error", err)
	}
}
