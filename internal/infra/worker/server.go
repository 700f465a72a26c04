package worker

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Readiness is the worker's readiness flag, shared between the startup
// sequence and the ops readiness endpoint. It starts not ready; the worker
// flips it once the gate, the schedules, and the listeners are up, and
// back off when shutdown begins.
//
// Example usage:
//
//	ready := NewReadiness(logger)
//	mux.Handle("/health/ready", &ophttp.ReadyHandler{Ready: ready.Ready})
//	// ... after initialization ...
//	ready.Set(true)
type Readiness struct {
	ready  atomic.Bool
	logger *slog.Logger
}

// NewReadiness creates a readiness flag in the not-ready state.
func NewReadiness(logger *slog.Logger) *Readiness {
	return &Readiness{logger: logger}
}

// Set changes the readiness state. The change is logged because probe
// flips are the first thing to look for when traffic stops.
func (r *Readiness) Set(ready bool) {
	r.ready.Store(ready)
	r.logger.Info("worker readiness changed", slog.Bool("ready", ready))
}

// Ready reports the current readiness state.
func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

// Server runs one HTTP listener with the worker's lifecycle: serve in the
// background, shut down gracefully when the context is cancelled, bound
// the shutdown by a grace period. The worker runs two of these, one for
// the Prometheus /metrics listener and one for the ops endpoints.
//
// Example usage:
//
//	srv := NewServer("ops", ":9091", handler, cfg.ShutdownTimeout, logger)
//	go func() {
//	    if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
//	        logger.Error("ops server failed", slog.Any("error", err))
//	    }
//	}()
type Server struct {
	name   string
	addr   string
	logger *slog.Logger
	grace  time.Duration
	server *http.Server
}

// NewServer creates a server for the given listener. The name appears in
// every lifecycle log line. A non-positive grace falls back to 5 seconds.
//
// Parameters:
//   - name: Listener name for logs (e.g., "ops", "metrics")
//   - addr: Listen address (e.g., ":9091", "localhost:9091")
//   - handler: Root handler, typically a mux wrapped in middleware
//   - grace: Shutdown grace period
//   - logger: Structured logger for lifecycle events
func NewServer(name, addr string, handler http.Handler, grace time.Duration, logger *slog.Logger) *Server {
	if grace <= 0 {
		grace = 5 * time.Second
	}

	return &Server{
		name:   name,
		addr:   addr,
		logger: logger,
		grace:  grace,
		server: &http.Server{
			Addr:        addr,
			Handler:     handler,
			ReadTimeout: 5 * time.Second,
			// Write timeout must cover a default 30-second pprof profile
			// when profiling is mounted on the ops listener.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start runs the listener. This is a blocking call that returns when the
// context is cancelled (after a graceful shutdown, with
// http.ErrServerClosed) or when the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("server", s.name),
			slog.String("addr", s.addr))
		if err := s.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
		defer cancel()

		s.logger.Info("server shutting down", slog.String("server", s.name))
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed",
				slog.String("server", s.name),
				slog.Any("error", err))
			return err
		}
		s.logger.Info("server stopped", slog.String("server", s.name))
		return http.ErrServerClosed

	case err := <-errChan:
		if err == http.ErrServerClosed {
			return err
		}
		s.logger.Error("server failed",
			slog.String("server", s.name),
			slog.Any("error", err))
		return err
	}
}
