// Package tracker provides a client for the experiment tracker's REST API.
// The tracker (an MLflow-style service) is where training pipelines log
// model versions, artifact locations, and holdout evaluation metrics.
package tracker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/cachedata"
)

// ModelVersionInfo is the tracker's view of one registered model version.
type ModelVersionInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	RunID      string `json:"run_id"`
	Source     string `json:"source"` // artifact storage URI (s3://...)
	Stage      string `json:"current_stage"`
	LastUpdate int64  `json:"last_updated_timestamp"`
}

// RunMetrics are the evaluation metrics logged against a run.
type RunMetrics struct {
	Precision   float64 `json:"precision" msgpack:"precision"`
	Recall      float64 `json:"recall" msgpack:"recall"`
	F1          float64 `json:"f1" msgpack:"f1"`
	AUC         float64 `json:"auc" msgpack:"auc"`
	SampleCount int     `json:"sample_count" msgpack:"sample_count"`
}

// Client is the experiment tracker API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *cachedata.Repository
}

// NewClient creates a new tracker client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL string, cacheRepo *cachedata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:       log.With().Str("component", "tracker").Logger(),
		cacheRepo: cacheRepo,
	}
}

// GetLatestVersion returns the newest registered version of a model.
// If the API fails, returns stale cached data if available.
func (c *Client) GetLatestVersion(model string) (*ModelVersionInfo, error) {
	var cached ModelVersionInfo
	if c.cacheRepo != nil {
		if found, err := c.cacheRepo.GetIfFresh("tracker_models", model, &cached); err == nil && found {
			c.log.Debug().Str("model", model).Msg("Tracker model cache hit")
			return &cached, nil
		}
	}

	var resp struct {
		ModelVersions []ModelVersionInfo `json:"model_versions"`
	}
	endpoint := fmt.Sprintf("%s/api/2.0/mlflow/registered-models/get-latest-versions?name=%s",
		c.baseURL, url.QueryEscape(model))
	if err := c.getJSON(endpoint, &resp); err != nil {
		if c.cacheRepo != nil {
			if found, cacheErr := c.cacheRepo.Get("tracker_models", model, &cached); cacheErr == nil && found {
				c.log.Warn().Err(err).Str("model", model).Msg("Tracker unavailable, using stale cached version")
				return &cached, nil
			}
		}
		return nil, err
	}

	if len(resp.ModelVersions) == 0 {
		return nil, nil
	}

	latest := resp.ModelVersions[0]
	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("tracker_models", model, latest, cachedata.TTLTrackerModels); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache tracker model version")
		}
	}
	return &latest, nil
}

// GetRunMetrics returns the evaluation metrics logged for a run.
// If the API fails, returns stale cached data if available.
func (c *Client) GetRunMetrics(runID string) (*RunMetrics, error) {
	var cached RunMetrics
	if c.cacheRepo != nil {
		if found, err := c.cacheRepo.GetIfFresh("tracker_metrics", runID, &cached); err == nil && found {
			c.log.Debug().Str("run_id", runID).Msg("Tracker metrics cache hit")
			return &cached, nil
		}
	}

	var resp struct {
		Run struct {
			Data struct {
				Metrics []struct {
					Key   string  `json:"key"`
					Value float64 `json:"value"`
				} `json:"metrics"`
			} `json:"data"`
		} `json:"run"`
	}
	endpoint := fmt.Sprintf("%s/api/2.0/mlflow/runs/get?run_id=%s", c.baseURL, url.QueryEscape(runID))
	if err := c.getJSON(endpoint, &resp); err != nil {
		if c.cacheRepo != nil {
			if found, cacheErr := c.cacheRepo.Get("tracker_metrics", runID, &cached); cacheErr == nil && found {
				c.log.Warn().Err(err).Str("run_id", runID).Msg("Tracker unavailable, using stale cached metrics")
				return &cached, nil
			}
		}
		return nil, err
	}

	metrics := RunMetrics{}
	seen := false
	for _, m := range resp.Run.Data.Metrics {
		switch m.Key {
		case "precision":
			metrics.Precision = m.Value
			seen = true
		case "recall":
			metrics.Recall = m.Value
			seen = true
		case "f1":
			metrics.F1 = m.Value
		case "auc", "roc_auc":
			metrics.AUC = m.Value
		case "sample_count":
			metrics.SampleCount = int(m.Value)
		}
	}
	if !seen {
		return nil, nil
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("tracker_metrics", runID, metrics, cachedata.TTLTrackerMetrics); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache tracker run metrics")
		}
	}
	return &metrics, nil
}

func (c *Client) getJSON(endpoint string, dest interface{}) error {
	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return fmt.Errorf("tracker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tracker returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode tracker response: %w", err)
	}
	return nil
}
