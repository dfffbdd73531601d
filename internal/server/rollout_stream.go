package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/modelgate/internal/events"
	"github.com/aristath/modelgate/internal/modules/rollout"
)

const streamWriteTimeout = 10 * time.Second

// rolloutStreamEvents are the event types that affect rollout state.
var rolloutStreamEvents = []events.EventType{
	events.RolloutStarted,
	events.GateEvaluated,
	events.StageAdvanced,
	events.RollbackTriggered,
	events.AlertRaised,
	events.ManifestWritten,
}

// RolloutStreamHandler pushes rollout lifecycle events over a websocket.
// Dashboards use it to follow a canary ramp live without polling.
type RolloutStreamHandler struct {
	eventBus *events.Bus
	rollouts *rollout.Service
	log      zerolog.Logger
}

// NewRolloutStreamHandler creates a new rollout stream handler.
func NewRolloutStreamHandler(eventBus *events.Bus, rollouts *rollout.Service, log zerolog.Logger) *RolloutStreamHandler {
	return &RolloutStreamHandler{
		eventBus: eventBus,
		rollouts: rollouts,
		log:      log.With().Str("component", "rollout_stream").Logger(),
	}
}

// streamMessage is the wire format sent to websocket clients.
type streamMessage struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      interface{}            `json:"data,omitempty"`
	Event     map[string]interface{} `json:"event,omitempty"`
}

// ServeHTTP handles GET /api/rollout/stream requests (websocket upgrade).
func (h *RolloutStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Same-origin policy is handled by the CORS middleware upstream
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := r.Context()
	h.log.Info().Msg("Client connected to rollout stream")

	// Buffered so a slow client cannot block publishers
	eventChan := make(chan *events.Event, 100)
	eventHandler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Rollout stream channel full, dropping event")
		}
	}
	for _, eventType := range rolloutStreamEvents {
		h.eventBus.Subscribe(eventType, eventHandler)
	}

	// Initial snapshot so clients render current state before any event fires
	current, err := h.rollouts.Current()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load current rollout for snapshot")
	}
	if writeErr := h.write(ctx, conn, streamMessage{
		Type:      "snapshot",
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      current, // null when no rollout is active
	}); writeErr != nil {
		return
	}

	// Drain client frames so pings are answered and closure is detected
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from rollout stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case <-readDone:
			h.log.Info().Msg("Rollout stream closed by client")
			return

		case event := <-eventChan:
			msg := streamMessage{
				Type:      string(event.Type),
				Module:    event.Module,
				Timestamp: event.Timestamp.Format(time.RFC3339),
				Event:     event.Data,
			}
			if err := h.write(ctx, conn, msg); err != nil {
				h.log.Debug().Err(err).Msg("Rollout stream write failed")
				return
			}
		}
	}
}

// write sends one JSON message with a bounded write timeout.
func (h *RolloutStreamHandler) write(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
