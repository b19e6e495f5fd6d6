package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/api"
	"github.com/dokzlo13/lightplan/internal/config"
)

// APIService wraps the HTTP API server.
type APIService struct {
	cfg    *config.Config
	server *api.Server
	done   chan struct{}
}

// NewAPIService creates a new APIService.
func NewAPIService(cfg *config.Config, handler *api.Handler) *APIService {
	return &APIService{
		cfg:    cfg,
		server: api.NewServer(cfg.Server, handler.Router()),
	}
}

// Start runs the server in the background. A listen failure is fatal.
func (s *APIService) Start(ctx context.Context, onFatalError func(error)) {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			onFatalError(fmt.Errorf("API server: %w", err))
		}
	}()
}

// Wait blocks until the server has returned or ctx expires. It returns
// immediately when the server was never started.
func (s *APIService) Wait(ctx context.Context) {
	if s.done == nil {
		return
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for API server to stop")
	}
}
