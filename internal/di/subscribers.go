package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/clients/mesh"
	"github.com/aristath/modelgate/internal/events"
)

// RegisterSubscribers wires cross-module event reactions.
//
// Whenever a rollout changes state, the serving config must follow: the
// manifest file is rewritten with the new traffic split and the split is
// pushed to the serving mesh. Both run synchronously on the emitting
// goroutine; failures are logged and left for the manifest sync endpoint
// or the next transition to repair.
func RegisterSubscribers(container *Container, log zerolog.Logger) {
	syncLog := log.With().Str("component", "rollout_sync").Logger()

	syncServingState := func(event *events.Event) {
		rolloutID, _ := event.Data["rollout_id"].(string)
		if rolloutID == "" {
			syncLog.Warn().Str("event_type", string(event.Type)).Msg("Event missing rollout_id, skipping sync")
			return
		}

		ro, err := container.RolloutService.Get(rolloutID)
		if err != nil || ro == nil {
			syncLog.Error().Err(err).Str("rollout_id", rolloutID).Msg("Failed to load rollout for serving sync")
			return
		}

		if err := container.ManifestService.SyncRollout(*ro); err != nil {
			syncLog.Error().Err(err).Str("rollout_id", rolloutID).Msg("Failed to write model config manifest")
		}

		split := mesh.SplitRequest{
			BaselineWeight:  ro.Split.BaselineWeight,
			CandidateWeight: ro.Split.CandidateWeight,
		}
		if err := container.MeshClient.ApplySplit(split); err != nil {
			syncLog.Error().Err(err).Str("rollout_id", rolloutID).Msg("Failed to push traffic split to mesh")
		}
	}

	container.EventBus.Subscribe(events.RolloutStarted, syncServingState)
	container.EventBus.Subscribe(events.StageAdvanced, syncServingState)
	container.EventBus.Subscribe(events.RollbackTriggered, syncServingState)

	// Prometheus gauges and counters follow the same events
	container.MetricsExporter.Register(container.EventBus)
}
