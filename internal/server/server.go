package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/pkg/log"
)

// Server represents the read API web server
type Server struct {
	Logger  log.Logger
	Config  *cfg.Config
	Handler *Handler
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(logger log.Logger, config *cfg.Config, handler *Handler) (*Server, error) {
	if handler == nil {
		return nil, errors.New("server: nil handler")
	}
	return &Server{
		Logger:  logger,
		Config:  config,
		Handler: handler,
	}, nil
}

// Start initializes and starts the HTTP server, blocking until it stops
func (s *Server) Start() error {
	mux := http.NewServeMux()
	s.Handler.RegisterRoutes(mux)

	s.server = &http.Server{
		Addr:         s.Config.Http.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.Logger.Info(context.Background(), "Starting API server on %s", s.Config.Http.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.Logger.Info(ctx, "Shutting down API server")
		return s.server.Shutdown(ctx)
	}
	return nil
}
