// Package mesh provides a client for the serving mesh's admin API.
// The mesh fronts the fraud-scoring deployments; this client pushes
// traffic splits and reads deployment health.
//
// Requests carry an explicit Host header because the mesh's ingress
// routes on virtual host, not on the admin endpoint's address.
package mesh

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/cachedata"
)

// SplitRequest is the traffic split pushed to the mesh.
type SplitRequest struct {
	BaselineWeight  int `json:"baseline_weight"`
	CandidateWeight int `json:"candidate_weight"`
}

// DeploymentStatus is the mesh's health view of one deployment.
type DeploymentStatus struct {
	Name            string `json:"name" msgpack:"name"`
	State           string `json:"state" msgpack:"state"` // healthy | degraded | down
	BaselineWeight  int    `json:"baseline_weight" msgpack:"baseline_weight"`
	CandidateWeight int    `json:"candidate_weight" msgpack:"candidate_weight"`
	ReadyReplicas   int    `json:"ready_replicas" msgpack:"ready_replicas"`
}

// Client is the serving-mesh admin API client.
type Client struct {
	baseURL    string
	host       string // Host header for ingress routing
	deployment string
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *cachedata.Repository
}

// NewClient creates a new mesh client.
// cacheRepo is optional - if nil, status caching is disabled.
func NewClient(baseURL, host, deployment string, cacheRepo *cachedata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		host:       host,
		deployment: deployment,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log:       log.With().Str("component", "mesh").Logger(),
		cacheRepo: cacheRepo,
	}
}

// ApplySplit pushes a traffic split to the mesh.
// The mesh applies it transactionally; a non-2xx response means the old
// split is still in effect.
func (c *Client) ApplySplit(split SplitRequest) error {
	if split.BaselineWeight+split.CandidateWeight != 100 {
		return fmt.Errorf("traffic weights must sum to 100, got %d", split.BaselineWeight+split.CandidateWeight)
	}

	body, err := json.Marshal(split)
	if err != nil {
		return fmt.Errorf("failed to marshal split request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/admin/deployments/%s/traffic", c.baseURL, c.deployment)
	req, err := http.NewRequest(http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build split request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Host = c.host

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mesh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mesh rejected traffic split with status %d", resp.StatusCode)
	}

	c.log.Info().
		Int("baseline_weight", split.BaselineWeight).
		Int("candidate_weight", split.CandidateWeight).
		Msg("Traffic split applied to mesh")

	// The cached status is stale the moment a new split lands
	if c.cacheRepo != nil {
		if err := c.cacheRepo.Delete("mesh_status", c.deployment); err != nil {
			c.log.Warn().Err(err).Msg("Failed to invalidate cached mesh status")
		}
	}
	return nil
}

// GetStatus returns the deployment's health.
// If the API fails, returns stale cached data if available.
func (c *Client) GetStatus() (*DeploymentStatus, error) {
	var cached DeploymentStatus
	if c.cacheRepo != nil {
		if found, err := c.cacheRepo.GetIfFresh("mesh_status", c.deployment, &cached); err == nil && found {
			c.log.Debug().Str("deployment", c.deployment).Msg("Mesh status cache hit")
			return &cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/admin/deployments/%s/status", c.baseURL, c.deployment)
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Host = c.host

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.cacheRepo != nil {
			if found, cacheErr := c.cacheRepo.Get("mesh_status", c.deployment, &cached); cacheErr == nil && found {
				c.log.Warn().Err(err).Msg("Mesh unavailable, using stale cached status")
				return &cached, nil
			}
		}
		return nil, fmt.Errorf("mesh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mesh returned status %d", resp.StatusCode)
	}

	var status DeploymentStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode mesh status: %w", err)
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("mesh_status", c.deployment, status, cachedata.TTLMeshStatus); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache mesh status")
		}
	}
	return &status, nil
}
