// Package stub is a development stand-in for the remote depth processing
// service. It implements the three endpoints the client orchestrates
// against, simulating stage-by-stage progress and producing placeholder
// output artifacts from the uploaded file.
package stub

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port      int
	DataDir   string
	StepDelay time.Duration
	Logger    *slog.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = 150 * time.Millisecond
	}

	service, err := newService(cfg.DataDir, cfg.StepDelay, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("initialize stub service: %w", err)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      NewRouter(service, cfg.Logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}, nil
}

func (s *Server) Start() error {
	s.logger.Info("starting stub depth service", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down stub depth service")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
