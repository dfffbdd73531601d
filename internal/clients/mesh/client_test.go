package mesh

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySplit(t *testing.T) {
	var gotHost string
	var gotBody SplitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/admin/deployments/fraud-detection/traffic", r.URL.Path)
		gotHost = r.Host
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "fraud-detection.local", "fraud-detection", nil, zerolog.Nop())
	err := client.ApplySplit(SplitRequest{BaselineWeight: 80, CandidateWeight: 20})
	require.NoError(t, err)
	assert.Equal(t, "fraud-detection.local", gotHost)
	assert.Equal(t, 80, gotBody.BaselineWeight)
	assert.Equal(t, 20, gotBody.CandidateWeight)
}

func TestApplySplitValidatesWeights(t *testing.T) {
	client := NewClient("http://unused", "h", "d", nil, zerolog.Nop())
	err := client.ApplySplit(SplitRequest{BaselineWeight: 60, CandidateWeight: 60})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100")
}

func TestApplySplitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := NewClient(server.URL, "fraud-detection.local", "fraud-detection", nil, zerolog.Nop())
	err := client.ApplySplit(SplitRequest{BaselineWeight: 50, CandidateWeight: 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/deployments/fraud-detection/status", r.URL.Path)
		assert.Equal(t, "fraud-detection.local", r.Host)
		w.Write([]byte(`{"name":"fraud-detection","state":"healthy","baseline_weight":80,"candidate_weight":20,"ready_replicas":4}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "fraud-detection.local", "fraud-detection", nil, zerolog.Nop())
	status, err := client.GetStatus()
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "healthy", status.State)
	assert.Equal(t, 20, status.CandidateWeight)
	assert.Equal(t, 4, status.ReadyReplicas)
}

func TestGetStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "fraud-detection.local", "fraud-detection", nil, zerolog.Nop())
	_, err := client.GetStatus()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
