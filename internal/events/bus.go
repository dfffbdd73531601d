// Package events provides the in-process event bus used to decouple modules.
// Modules emit events when state changes (a gate decision, a stage
// transition, an alert) and interested parties subscribe without the
// emitter knowing about them.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a category of event
type EventType string

const (
	MetricsRecorded   EventType = "metrics_recorded"
	GateEvaluated     EventType = "gate_evaluated"
	RolloutStarted    EventType = "rollout_started"
	StageAdvanced     EventType = "stage_advanced"
	RollbackTriggered EventType = "rollback_triggered"
	AlertRaised       EventType = "alert_raised"
	ManifestWritten   EventType = "manifest_written"
	ObservationSynced EventType = "observation_synced"
	BackupCompleted   EventType = "backup_completed"
)

// AllTypes lists every event type, used by stream handlers that subscribe
// to everything.
var AllTypes = []EventType{
	MetricsRecorded,
	GateEvaluated,
	RolloutStarted,
	StageAdvanced,
	RollbackTriggered,
	AlertRaised,
	ManifestWritten,
	ObservationSynced,
	BackupCompleted,
}

// Event is a single emitted event
type Event struct {
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Handler receives events for subscribed types
type Handler func(event *Event)

// Bus is a synchronous fan-out event bus.
// Handlers run on the emitter's goroutine; they must not block.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event with free-form data to all subscribers
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Module:    module,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.RLock()
	handlers := b.handlers[eventType]
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		Int("subscribers", len(handlers)).
		Msg("Emitting event")

	for _, handler := range handlers {
		handler(event)
	}
}

// EmitTyped publishes a typed event payload.
// The payload's fields are flattened into the event data map via its
// ToMap method, keeping SSE/websocket consumers schema-stable.
func (b *Bus) EmitTyped(module string, data EventData) {
	b.Emit(data.EventType(), module, data.ToMap())
}
