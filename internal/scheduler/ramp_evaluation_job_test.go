package scheduler

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/modelgate/internal/modules/gate"
	"github.com/aristath/modelgate/internal/modules/observation"
	"github.com/aristath/modelgate/internal/modules/rollout"
)

type mockRolloutService struct {
	mock.Mock
}

func (m *mockRolloutService) Current() (*rollout.Rollout, error) {
	args := m.Called()
	ro, _ := args.Get(0).(*rollout.Rollout)
	return ro, args.Error(1)
}

func (m *mockRolloutService) Advance() (*rollout.Rollout, *gate.PromotionDecision, error) {
	args := m.Called()
	ro, _ := args.Get(0).(*rollout.Rollout)
	decision, _ := args.Get(1).(*gate.PromotionDecision)
	return ro, decision, args.Error(2)
}

func (m *mockRolloutService) Rollback(reason string) (*rollout.Rollout, error) {
	args := m.Called(reason)
	ro, _ := args.Get(0).(*rollout.Rollout)
	return ro, args.Error(1)
}

type mockObservationService struct {
	mock.Mock
}

func (m *mockObservationService) Health(model string) (observation.WindowReport, error) {
	args := m.Called(model)
	return args.Get(0).(observation.WindowReport), args.Error(1)
}

type mockAlertRecorder struct {
	mock.Mock
}

func (m *mockAlertRecorder) RecordAlert(model, reason string) error {
	args := m.Called(model, reason)
	return args.Error(0)
}

func canaryRollout() *rollout.Rollout {
	return &rollout.Rollout{
		ID:               "r1",
		BaselineVersion:  "v1",
		CandidateVersion: "v2",
		Stage:            rollout.StageCanary20,
		Split:            rollout.TrafficSplit{BaselineWeight: 80, CandidateWeight: 20},
		Active:           true,
	}
}

func TestRampJobNoActiveRollout(t *testing.T) {
	rollouts := new(mockRolloutService)
	rollouts.On("Current").Return(nil, nil)

	job := NewRampEvaluationJob(rollouts, new(mockObservationService), new(mockAlertRecorder), zerolog.Nop())
	require.NoError(t, job.Run())
	rollouts.AssertNotCalled(t, "Advance")
}

func TestRampJobSkipsShadowStage(t *testing.T) {
	ro := canaryRollout()
	ro.Stage = rollout.StageShadow

	rollouts := new(mockRolloutService)
	rollouts.On("Current").Return(ro, nil)

	obs := new(mockObservationService)
	job := NewRampEvaluationJob(rollouts, obs, new(mockAlertRecorder), zerolog.Nop())
	require.NoError(t, job.Run())
	obs.AssertNotCalled(t, "Health", mock.Anything)
	rollouts.AssertNotCalled(t, "Advance")
}

func TestRampJobRollsBackOnBreach(t *testing.T) {
	rollouts := new(mockRolloutService)
	rollouts.On("Current").Return(canaryRollout(), nil)
	rollouts.On("Rollback", mock.MatchedBy(func(reason string) bool {
		return len(reason) > 0
	})).Return(canaryRollout(), nil)

	obs := new(mockObservationService)
	obs.On("Health", "v2").Return(observation.WindowReport{
		Model:       "v2",
		SampleCount: 500,
		Precision:   0.62,
		Recall:      0.81,
		Healthy:     false,
		Violations:  []string{"precision 0.6200 below threshold 0.85"},
	}, nil)

	alerts := new(mockAlertRecorder)
	alerts.On("RecordAlert", "v2", mock.Anything).Return(nil)

	job := NewRampEvaluationJob(rollouts, obs, alerts, zerolog.Nop())
	require.NoError(t, job.Run())

	rollouts.AssertCalled(t, "Rollback", mock.Anything)
	rollouts.AssertNotCalled(t, "Advance")
	alerts.AssertExpectations(t)
}

func TestRampJobHoldsOnEmptyWindow(t *testing.T) {
	rollouts := new(mockRolloutService)
	rollouts.On("Current").Return(canaryRollout(), nil)

	obs := new(mockObservationService)
	obs.On("Health", "v2").Return(observation.WindowReport{
		Model:      "v2",
		Healthy:    false,
		Violations: []string{"no resolved outcomes in the last 60 minutes"},
	}, nil)

	job := NewRampEvaluationJob(rollouts, obs, new(mockAlertRecorder), zerolog.Nop())
	require.NoError(t, job.Run())

	rollouts.AssertNotCalled(t, "Rollback", mock.Anything)
	rollouts.AssertNotCalled(t, "Advance")
}

func TestRampJobAdvancesHealthyCanary(t *testing.T) {
	advanced := canaryRollout()
	advanced.Stage = rollout.StageCanary50

	rollouts := new(mockRolloutService)
	rollouts.On("Current").Return(canaryRollout(), nil)
	rollouts.On("Advance").Return(advanced, &gate.PromotionDecision{Passed: true}, nil)

	obs := new(mockObservationService)
	obs.On("Health", "v2").Return(observation.WindowReport{
		Model: "v2", SampleCount: 500, Precision: 0.91, Recall: 0.82, Healthy: true,
	}, nil)

	job := NewRampEvaluationJob(rollouts, obs, new(mockAlertRecorder), zerolog.Nop())
	require.NoError(t, job.Run())
	rollouts.AssertCalled(t, "Advance")
}

func TestRampJobToleratesSparseGateInputs(t *testing.T) {
	rollouts := new(mockRolloutService)
	rollouts.On("Current").Return(canaryRollout(), nil)
	rollouts.On("Advance").Return(nil, nil, fmt.Errorf("baseline observed metrics: no resolved outcomes"))

	obs := new(mockObservationService)
	obs.On("Health", "v2").Return(observation.WindowReport{
		Model: "v2", SampleCount: 200, Precision: 0.90, Recall: 0.80, Healthy: true,
	}, nil)

	job := NewRampEvaluationJob(rollouts, obs, new(mockAlertRecorder), zerolog.Nop())
	require.NoError(t, job.Run())
}
