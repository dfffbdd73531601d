package cachedata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Registered model metadata changes only when a new version is logged
	TTLTrackerModels = 24 * time.Hour

	// Evaluation metrics for a finished run are immutable, but the
	// "latest" pointer moves as training pipelines push runs
	TTLTrackerMetrics = time.Hour

	// Mesh deployment status is near-live data
	TTLMeshStatus = 5 * time.Minute
)
