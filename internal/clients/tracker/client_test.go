package tracker

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLatestVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.0/mlflow/registered-models/get-latest-versions", r.URL.Path)
		assert.Equal(t, "fraud-detection", r.URL.Query().Get("name"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model_versions":[{"name":"fraud-detection","version":"2","run_id":"run-2",
			"source":"s3://mlflow-artifacts/1/def/artifacts/fraud-v2-improved","current_stage":"None"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())
	got, err := client.GetLatestVersion("fraud-detection")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2", got.Version)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, "s3://mlflow-artifacts/1/def/artifacts/fraud-v2-improved", got.Source)
}

func TestGetLatestVersionEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model_versions":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())
	got, err := client.GetLatestVersion("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetRunMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.0/mlflow/runs/get", r.URL.Path)
		assert.Equal(t, "run-2", r.URL.Query().Get("run_id"))
		w.Write([]byte(`{"run":{"data":{"metrics":[
			{"key":"precision","value":0.79},
			{"key":"recall","value":0.77},
			{"key":"f1","value":0.78},
			{"key":"roc_auc","value":0.95},
			{"key":"sample_count","value":120000}
		]}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())
	got, err := client.GetRunMetrics("run-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.79, got.Precision)
	assert.Equal(t, 0.77, got.Recall)
	assert.Equal(t, 0.95, got.AUC)
	assert.Equal(t, 120000, got.SampleCount)
}

func TestGetRunMetricsNoEvaluation(t *testing.T) {
	// A run without precision/recall has no usable evaluation
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"run":{"data":{"metrics":[{"key":"loss","value":0.02}]}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())
	got, err := client.GetRunMetrics("run-3")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestServerErrorPropagates(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())
	_, err := client.GetRunMetrics("run-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), calls.Load())
}
