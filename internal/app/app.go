package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/config"
)

// App is the main application container that manages all services and their lifecycle.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	fatalErr error
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Start restores the scenario cache and starts ingest and the API.
// The provided context is used for cancellation.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.services.Start(a.ctx, a.fail); err != nil {
		return err
	}

	log.Info().
		Str("addr", a.cfg.Server.Addr()).
		Bool("mqtt", a.cfg.MQTT.Enabled).
		Int("scenarios", a.services.Directory.Len()).
		Str("location", a.cfg.Geo.Name).
		Msg("lightplan started")
	return nil
}

// fail records the first error of a service that cannot keep running and
// cancels the app context. Errors raised while already shutting down are
// only logged.
func (a *App) fail(err error) {
	if a.ctx.Err() != nil {
		log.Debug().Err(err).Msg("Service stopped during shutdown")
		return
	}

	a.mu.Lock()
	first := a.fatalErr == nil
	if first {
		a.fatalErr = err
	}
	a.mu.Unlock()

	if first {
		log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		a.cancel()
	}
}

// Err returns the error that triggered shutdown, if any.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fatalErr
}

// Stop gracefully shuts down all services.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}

	if a.services != nil {
		return a.services.Stop()
	}

	return nil
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// ResetCache drops the persisted scenario cache.
// This is useful for starting clean with the --reset-cache flag.
func (a *App) ResetCache() error {
	if a.services != nil {
		return a.services.ClearCache()
	}
	return nil
}

// Services exposes the service container.
func (a *App) Services() *Services {
	return a.services
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
