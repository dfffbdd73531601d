package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var received []*Event
	bus.Subscribe(GateEvaluated, func(e *Event) {
		received = append(received, e)
	})

	bus.Emit(GateEvaluated, "gate", map[string]interface{}{"passed": true})

	require.Len(t, received, 1)
	assert.Equal(t, GateEvaluated, received[0].Type)
	assert.Equal(t, "gate", received[0].Module)
	assert.Equal(t, true, received[0].Data["passed"])
}

func TestEmitSkipsOtherTypes(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	called := false
	bus.Subscribe(StageAdvanced, func(e *Event) {
		called = true
	})

	bus.Emit(GateEvaluated, "gate", nil)
	assert.False(t, called)
}

func TestEmitTypedFlattensPayload(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got *Event
	bus.Subscribe(StageAdvanced, func(e *Event) {
		got = e
	})

	bus.EmitTyped("rollout", &StageAdvancedData{
		RolloutID:       "abc",
		From:            "canary-20",
		To:              "canary-50",
		BaselineWeight:  50,
		CandidateWeight: 50,
	})

	require.NotNil(t, got)
	assert.Equal(t, "canary-20", got.Data["from"])
	assert.Equal(t, "canary-50", got.Data["to"])
	assert.Equal(t, 50, got.Data["baseline_weight"])
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	count := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(AlertRaised, func(e *Event) { count++ })
	}

	bus.Emit(AlertRaised, "observation", nil)
	assert.Equal(t, 3, count)
}
