// Package api serves the ingest webhooks and the read API over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/config"
)

// Server is the HTTP server of the daemon.
type Server struct {
	cfg        config.ServerConfig
	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates a server for handler.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{cfg: cfg, handler: handler}
}

// Run starts the server. It blocks until the context is cancelled and
// in-flight requests have drained or the shutdown timeout expired.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout.Duration(),
		WriteTimeout: s.cfg.WriteTimeout.Duration(),
	}

	log.Info().Str("addr", s.cfg.Addr()).Msg("Starting API server")

	// Handle graceful shutdown
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	<-drained
	return nil
}
