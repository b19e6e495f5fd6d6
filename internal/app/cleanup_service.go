package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/config"
	"github.com/dokzlo13/lightplan/internal/ledger"
)

// CleanupService enforces the history retention window.
type CleanupService struct {
	cfg    *config.Config
	ledger *ledger.Ledger
}

// NewCleanupService creates a new CleanupService.
func NewCleanupService(cfg *config.Config, l *ledger.Ledger) *CleanupService {
	return &CleanupService{cfg: cfg, ledger: l}
}

// Start runs one cleanup immediately and then on every interval.
func (s *CleanupService) Start(ctx context.Context) {
	if s.cfg.Ledger.RetentionDays < 0 {
		log.Debug().Msg("History retention disabled")
		return
	}
	go s.run(ctx)
}

func (s *CleanupService) run(ctx context.Context) {
	retention := s.cfg.Ledger.Retention()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	s.cleanup(retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(retention)
		}
	}
}

func (s *CleanupService) cleanup(retention time.Duration) {
	deleted, err := s.ledger.DeleteOlderThan(retention)
	if err != nil {
		log.Error().Err(err).Msg("Failed to clean up old history events")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old history events")
	}
}
