package app

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/api"
	"github.com/dokzlo13/lightplan/internal/config"
	"github.com/dokzlo13/lightplan/internal/db"
	"github.com/dokzlo13/lightplan/internal/eventbus"
	"github.com/dokzlo13/lightplan/internal/geo"
	"github.com/dokzlo13/lightplan/internal/ingest"
	"github.com/dokzlo13/lightplan/internal/ledger"
	"github.com/dokzlo13/lightplan/internal/scenario"
	"github.com/dokzlo13/lightplan/internal/storage"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Store  *storage.Store
	Bus    *eventbus.Bus

	// Domain state
	Directory *scenario.Directory
	GeoCalc   *geo.Calculator
	Sink      *ingest.Sink

	// High-level services
	API     *APIService
	MQTT    *MQTTService
	Cleanup *CleanupService

	ready atomic.Bool
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Store = storage.NewStore(database.DB)
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	s.GeoCalc = geo.NewCalculatorWithCache(geo.Location{
		Name:      cfg.Geo.Name,
		Latitude:  cfg.Geo.Lat,
		Longitude: cfg.Geo.Lon,
		Timezone:  cfg.Geo.Timezone,
	}, geo.NewCache(database.DB))

	s.Directory = scenario.NewPersistentDirectory(s.Store)
	s.Sink = ingest.NewSink(s.Directory, s.Ledger)

	handler := api.NewHandler(s.Directory, s.Ledger, s.GeoCalc, s.Bus, api.Options{
		HistoryLimit: cfg.Ledger.HistoryLimit,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Ready:        s.ready.Load,
	})
	s.API = NewAPIService(cfg, handler)
	s.MQTT = NewMQTTService(cfg, s.Bus)
	s.Cleanup = NewCleanupService(cfg, s.Ledger)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a service cannot keep running.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	restored, err := s.Directory.Restore()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to restore scenario cache, starting empty")
	} else {
		log.Info().Int("scenarios", restored).Msg("Scenario cache restored")
	}

	s.Sink.Register(s.Bus)

	s.API.Start(ctx, onFatalError)
	s.MQTT.Start(ctx, onFatalError)
	s.Cleanup.Start(ctx)

	s.ready.Store(true)
	return nil
}

// ClearCache removes every persisted scenario.
func (s *Services) ClearCache() error {
	return s.Store.Clear(scenario.StorageKind)
}

// Stop gracefully stops all services. The context passed to Start must be
// cancelled first.
func (s *Services) Stop() error {
	s.ready.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
	defer cancel()

	// In-flight requests still read the directory and the ledger.
	s.API.Wait(ctx)
	s.Bus.Close(ctx)

	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
