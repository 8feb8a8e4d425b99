package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/logging"
)

const defaultShutdownTimeout = 5 * time.Second

// Server serves one handler on one listen address.
type Server struct {
	name    string
	addr    string
	handler http.Handler

	readTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *logging.Logger

	listener net.Listener
	ready    chan struct{}
	mu       sync.Mutex
}

// NewServer creates a server named name (used in logs) for handler.
func NewServer(name, addr string, handler http.Handler, cfg config.APIConfig, logger *logging.Logger) *Server {
	shutdown := cfg.ShutdownTimeout.Duration()
	if shutdown <= 0 {
		shutdown = defaultShutdownTimeout
	}
	return &Server{
		name:            name,
		addr:            addr,
		handler:         handler,
		readTimeout:     cfg.ReadTimeout.Duration(),
		shutdownTimeout: shutdown,
		logger:          logger.With("server", name),
		ready:           make(chan struct{}),
	}
}

// Run listens and serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s api: listening on %s: %w", s.name, s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("api server started", logging.Address(listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s api: %w", s.name, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s api: shutdown: %w", s.name, err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr blocks until the server listens and returns its address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr(), nil
}
