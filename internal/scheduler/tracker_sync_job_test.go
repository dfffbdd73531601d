package scheduler

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/modelgate/internal/clients/tracker"
	"github.com/aristath/modelgate/internal/events"
	"github.com/aristath/modelgate/internal/modules/gate"
	"github.com/aristath/modelgate/internal/modules/registry"
)

type mockTrackerClient struct {
	mock.Mock
}

func (m *mockTrackerClient) GetLatestVersion(model string) (*tracker.ModelVersionInfo, error) {
	args := m.Called(model)
	info, _ := args.Get(0).(*tracker.ModelVersionInfo)
	return info, args.Error(1)
}

func (m *mockTrackerClient) GetRunMetrics(runID string) (*tracker.RunMetrics, error) {
	args := m.Called(runID)
	metrics, _ := args.Get(0).(*tracker.RunMetrics)
	return metrics, args.Error(1)
}

type mockRegistryService struct {
	mock.Mock
}

func (m *mockRegistryService) RegisterVersion(v registry.ModelVersion) error {
	args := m.Called(v)
	return args.Error(0)
}

func (m *mockRegistryService) RecordMetrics(rec registry.MetricsRecord) (int64, error) {
	args := m.Called(rec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRegistryService) LatestGateMetrics(version string) (gate.ModelMetrics, error) {
	args := m.Called(version)
	return args.Get(0).(gate.ModelMetrics), args.Error(1)
}

func newSyncJob(trackerClient *mockTrackerClient, registrySvc *mockRegistryService) *TrackerSyncJob {
	return NewTrackerSyncJob(trackerClient, registrySvc, "fraud-detection", events.NewBus(zerolog.Nop()), zerolog.Nop())
}

func TestTrackerSyncRecordsVersionAndMetrics(t *testing.T) {
	trackerClient := new(mockTrackerClient)
	trackerClient.On("GetLatestVersion", "fraud-detection").Return(&tracker.ModelVersionInfo{
		Name:    "fraud-detection",
		Version: "2",
		RunID:   "run-2",
		Source:  "s3://mlflow-artifacts/1/def/artifacts/fraud-v2-improved",
	}, nil)
	trackerClient.On("GetRunMetrics", "run-2").Return(&tracker.RunMetrics{
		Precision: 0.79, Recall: 0.77, F1: 0.78, AUC: 0.95, SampleCount: 120000,
	}, nil)

	registrySvc := new(mockRegistryService)
	registrySvc.On("RegisterVersion", mock.MatchedBy(func(v registry.ModelVersion) bool {
		return v.Version == "fraud-detection-v2" && v.StorageURI == "s3://mlflow-artifacts/1/def/artifacts/fraud-v2-improved"
	})).Return(nil)
	registrySvc.On("RecordMetrics", mock.MatchedBy(func(rec registry.MetricsRecord) bool {
		return rec.Version == "fraud-detection-v2" && rec.Precision == 0.79 && rec.Recall == 0.77
	})).Return(int64(1), nil)

	job := newSyncJob(trackerClient, registrySvc)
	require.NoError(t, job.Run())
	registrySvc.AssertExpectations(t)
}

func TestTrackerSyncNoVersions(t *testing.T) {
	trackerClient := new(mockTrackerClient)
	trackerClient.On("GetLatestVersion", "fraud-detection").Return(nil, nil)

	registrySvc := new(mockRegistryService)
	job := newSyncJob(trackerClient, registrySvc)
	require.NoError(t, job.Run())
	registrySvc.AssertNotCalled(t, "RegisterVersion", mock.Anything)
}

func TestTrackerSyncNoMetricsYet(t *testing.T) {
	trackerClient := new(mockTrackerClient)
	trackerClient.On("GetLatestVersion", "fraud-detection").Return(&tracker.ModelVersionInfo{
		Version: "3", RunID: "run-3", Source: "s3://mlflow-artifacts/1/xyz/artifacts/fraud-v3",
	}, nil)
	trackerClient.On("GetRunMetrics", "run-3").Return(nil, nil)

	registrySvc := new(mockRegistryService)
	registrySvc.On("RegisterVersion", mock.Anything).Return(nil)

	job := newSyncJob(trackerClient, registrySvc)
	require.NoError(t, job.Run())
	registrySvc.AssertNotCalled(t, "RecordMetrics", mock.Anything)
}

func TestTrackerSyncSkipsUnsupportedStorageURI(t *testing.T) {
	trackerClient := new(mockTrackerClient)
	trackerClient.On("GetLatestVersion", "fraud-detection").Return(&tracker.ModelVersionInfo{
		Version: "4", RunID: "run-4", Source: "file:///tmp/model",
	}, nil)

	registrySvc := new(mockRegistryService)
	registrySvc.On("RegisterVersion", mock.Anything).Return(fmt.Errorf("storage URI must start with s3://, got %q", "file:///tmp/model"))

	job := newSyncJob(trackerClient, registrySvc)
	require.NoError(t, job.Run()) // misconfigured pipeline is logged, not retried
	trackerClient.AssertNotCalled(t, "GetRunMetrics", mock.Anything)
}

func TestTrackerSyncPropagatesTrackerErrors(t *testing.T) {
	trackerClient := new(mockTrackerClient)
	trackerClient.On("GetLatestVersion", "fraud-detection").Return(nil, fmt.Errorf("tracker returned status 502"))

	job := newSyncJob(trackerClient, new(mockRegistryService))
	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
