package httpdebug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tduva/bulkcoord/internal/metrics"
)

// Server owns the debug HTTP listener's lifecycle, grounded on the
// teacher's internal/server.Server: a single *http.Server plus a
// sync.Once-guarded graceful shutdown.
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	once       sync.Once
}

// New constructs a debug server bound to addr, serving /debug, /debug.html,
// and /metrics for the given coordinator and recorder.
func New(addr string, debug CoordinatorDebug, recorder *metrics.Recorder, logger *slog.Logger) (*Server, error) {
	if addr == "" {
		return nil, errors.New("httpdebug: listen address required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(debug, recorder),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		logger:     logger.With(slog.String("component", "httpdebug")),
		httpServer: httpSrv,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully within a
// bounded grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("debug listener starting", slog.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("httpdebug: listen: %w", err)
			return
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) shutdown(ctx context.Context) error {
	var shutdownErr error
	s.once.Do(func() {
		s.logger.Info("debug listener shutting down")
		shutdownErr = s.httpServer.Shutdown(ctx)
	})
	return shutdownErr
}
