// Package eventbus routes ingested payloads to their handlers on a bounded
// worker pool.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeScenarioList carries a full scenario list; it reseeds the directory.
	EventTypeScenarioList EventType = "scenario_list"
	// EventTypeScenarioUpdate carries one scenario.
	EventTypeScenarioUpdate EventType = "scenario_update"
	// EventTypeHistory carries raw history events.
	EventTypeHistory EventType = "history"
	// EventTypeReset clears the directory.
	EventTypeReset EventType = "reset"
)

// Default configuration
const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 100
)

// Event is a decoded payload and where it came from
type Event struct {
	Type    EventType
	Source  string // webhook, mqtt, ...
	Payload any
}

// Handler is a function that handles events
type Handler func(Event)

// work represents a unit of work for the worker pool
type work struct {
	event   Event
	handler Handler
}

// Bus provides event routing with a bounded worker pool
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	// Worker pool
	workQueue chan work
	wg        sync.WaitGroup

	// closed is guarded by queueMu; publishers hold the read lock while
	// sending so the queue is never closed under them.
	queueMu sync.RWMutex
	closed  bool
}

// New creates a new event bus with default settings
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a new event bus with custom worker count and queue size
func NewWithConfig(workerCount, queueSize int) *Bus {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	b := &Bus{
		handlers:  make(map[EventType][]Handler),
		workQueue: make(chan work, queueSize),
	}

	// Start worker pool
	for i := 0; i < workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}

	log.Debug().Int("workers", workerCount).Int("queue_size", queueSize).Msg("Event bus worker pool started")
	return b
}

// worker processes events from the work queue
func (b *Bus) worker(id int) {
	defer b.wg.Done()

	for w := range b.workQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event_type", string(w.event.Type)).
						Int("worker", id).
						Msg("Event handler panicked")
				}
			}()
			w.handler(w.event)
		}()
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish queues the event for every subscribed handler and reports how many
// handlers accepted it. Non-blocking: when the queue is full or the bus is
// closed the event is dropped.
func (b *Bus) Publish(event Event) int {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	b.queueMu.RLock()
	defer b.queueMu.RUnlock()

	if b.closed {
		log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closed, dropping event")
		return 0
	}

	queued := 0
	for _, handler := range handlers {
		select {
		case b.workQueue <- work{event: event, handler: handler}:
			queued++
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Str("source", event.Source).
				Msg("Event bus queue full, dropping event")
		}
	}
	return queued
}

// Close stops accepting events, drains the queue and waits for workers until
// ctx expires.
func (b *Bus) Close(ctx context.Context) {
	b.queueMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.workQueue)
	}
	b.queueMu.Unlock()

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus workers stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}

// Clear removes all handlers
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = make(map[EventType][]Handler)
}
