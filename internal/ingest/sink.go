package ingest

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/eventbus"
	"github.com/dokzlo13/lightplan/internal/jsonx"
	"github.com/dokzlo13/lightplan/internal/ledger"
	"github.com/dokzlo13/lightplan/internal/scenario"
)

// Sink applies bus events to the directory and the ledger.
type Sink struct {
	directory *scenario.Directory
	ledger    *ledger.Ledger
}

// NewSink creates a sink. ledger may be nil, in which case history events
// are dropped.
func NewSink(directory *scenario.Directory, l *ledger.Ledger) *Sink {
	return &Sink{directory: directory, ledger: l}
}

// Register subscribes the sink to every ingest event type.
func (s *Sink) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeScenarioList, s.Handle)
	bus.Subscribe(eventbus.EventTypeScenarioUpdate, s.Handle)
	bus.Subscribe(eventbus.EventTypeReset, s.Handle)
	bus.Subscribe(eventbus.EventTypeHistory, s.Handle)
}

// Handle applies one event.
func (s *Sink) Handle(e eventbus.Event) {
	switch e.Type {
	case eventbus.EventTypeScenarioList:
		entries := scenario.ParseList(e.Payload)
		s.directory.Seed(entries)
		log.Info().Str("source", e.Source).Int("count", len(entries)).Msg("Scenario list seeded")

	case eventbus.EventTypeScenarioUpdate:
		entry, ok := scenario.ParseEntry(e.Payload)
		if !ok {
			log.Warn().Str("source", e.Source).Msg("Scenario update without id, ignoring")
			return
		}
		s.directory.Put(entry)
		log.Debug().Str("source", e.Source).Str("id", entry.Scenario.ID).Msg("Scenario updated")

	case eventbus.EventTypeReset:
		s.directory.Reset()
		log.Info().Str("source", e.Source).Msg("Scenario directory reset")

	case eventbus.EventTypeHistory:
		if s.ledger == nil {
			return
		}
		list, _ := jsonx.Slice(e.Payload)
		added, err := s.ledger.Append(list)
		if err != nil {
			log.Error().Err(err).Str("source", e.Source).Msg("Failed to append history events")
			return
		}
		log.Debug().Str("source", e.Source).Int("received", len(list)).Int("added", added).Msg("History events stored")

	default:
		log.Warn().Str("event_type", string(e.Type)).Msg("Unhandled ingest event")
	}
}

// Publish applies the event synchronously, so a Sink can stand in for the
// bus.
func (s *Sink) Publish(e eventbus.Event) int {
	s.Handle(e)
	return 1
}
