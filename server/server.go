// Package server exposes the controller over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"lautenbacher.net/trafficlight/controller"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	httpServer *http.Server
}

// New builds the API routes. metrics may be nil, then /metrics is not served.
func New(listen string, ctrl *controller.Controller, metrics http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              listen,
			Handler:           NewMux(ctrl, metrics),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func NewMux(ctrl *controller.Controller, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/state", StateHandler(ctrl))
	mux.Handle("/api/transition", TransitionHandler(ctrl))
	mux.Handle("/api/dwell", DwellHandler(ctrl))
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

// Run serves until ctx is done and then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting web server", "listen", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("Stopping web server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
