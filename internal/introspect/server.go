// Package introspect exposes a small local HTTP server for long-running
// research commands: liveness, Prometheus metrics, and a websocket
// progress feed, mirroring the teacher's health/metrics route layout.
package introspect

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tarifa/internal/infrastructure"
	"tarifa/internal/progress"
)

// Server is the local introspection HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *progress.Hub
	logger     *slog.Logger
	startedAt  time.Time
}

// New builds a Server listening on addr (e.g. ":9190"). hub may be nil if
// the caller doesn't need the /progress websocket feed. metrics is the
// handler to serve at /metrics; pass nil to fall back to the default
// global Prometheus registry (only Go runtime collectors, no domain
// metrics) -- callers that ran infrastructure.InitializeOTel should pass
// providers.PrometheusHTTP so /metrics reflects the run's own counters.
func New(addr string, hub *progress.Hub, logger *slog.Logger, metrics http.Handler) *Server {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "introspect"))

	if metrics == nil {
		metrics = promhttp.Handler()
	}

	s := &Server{hub: hub, logger: logger, startedAt: time.Now()}

	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metrics)
	if hub != nil {
		r.Get("/progress", s.handleProgress)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Start runs the server in the background. It returns once the listener
// either fails immediately or the server is serving.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("introspection server starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if err := progress.ServeWS(s.hub, w, r); err != nil {
		s.logger.Error("progress websocket upgrade failed", slog.String("error", err.Error()))
	}
}
