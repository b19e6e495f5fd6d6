package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/config"
	"github.com/dokzlo13/lightplan/internal/ingest"
)

// MQTTService wraps the optional MQTT subscriber.
type MQTTService struct {
	cfg        *config.Config
	subscriber *ingest.Subscriber
}

// NewMQTTService creates a new MQTTService. Nothing connects until Start.
func NewMQTTService(cfg *config.Config, bus ingest.Publisher) *MQTTService {
	s := &MQTTService{cfg: cfg}
	if cfg.MQTT.Enabled {
		s.subscriber = ingest.NewSubscriber(ingest.NewPahoClient(cfg.MQTT), bus, cfg.MQTT)
	}
	return s
}

// Start begins the subscription if enabled. A failed connection is fatal.
func (s *MQTTService) Start(ctx context.Context, onFatalError func(error)) {
	if s.subscriber == nil {
		log.Debug().Msg("MQTT ingest disabled")
		return
	}

	go func() {
		if err := s.subscriber.Run(ctx); err != nil {
			onFatalError(fmt.Errorf("MQTT subscriber: %w", err))
		}
	}()
}
