package rollout

import (
	"fmt"
	"time"
)

// Stage identifies where an active rollout sits on the promotion ramp
type Stage string

const (
	// StageShadow - candidate deployed but receiving no live traffic
	StageShadow Stage = "shadow"
	// StageCanary20 - first promotion step, default 80/20 split
	StageCanary20 Stage = "canary-20"
	// StageCanary50 - second step, 50/50 split
	StageCanary50 Stage = "canary-50"
	// StageFull - candidate serves all traffic
	StageFull Stage = "full"
	// StageRolledBack - rollout aborted, all traffic back on baseline
	StageRolledBack Stage = "rolled-back"
)

// Valid reports whether the stage is a known ramp stage
func (s Stage) Valid() bool {
	switch s {
	case StageShadow, StageCanary20, StageCanary50, StageFull, StageRolledBack:
		return true
	}
	return false
}

// Terminal reports whether the rollout can advance no further
func (s Stage) Terminal() bool {
	return s == StageFull || s == StageRolledBack
}

// TrafficSplit is the configuration artifact consumed by the serving layer.
// Weights are percentages; they must be non-negative and sum to exactly 100.
type TrafficSplit struct {
	BaselineWeight  int `json:"baseline_weight"`
	CandidateWeight int `json:"candidate_weight"`
}

// NewTrafficSplit validates and constructs a traffic split
func NewTrafficSplit(baseline, candidate int) (TrafficSplit, error) {
	if baseline < 0 || candidate < 0 {
		return TrafficSplit{}, fmt.Errorf("traffic weights must be non-negative, got %d/%d", baseline, candidate)
	}
	if baseline+candidate != 100 {
		return TrafficSplit{}, fmt.Errorf("traffic weights must sum to 100, got %d", baseline+candidate)
	}
	return TrafficSplit{BaselineWeight: baseline, CandidateWeight: candidate}, nil
}

// AllBaseline returns the no-candidate-traffic split (100/0)
func AllBaseline() TrafficSplit {
	return TrafficSplit{BaselineWeight: 100, CandidateWeight: 0}
}

// Rollout is the persistent state of one candidate promotion
type Rollout struct {
	ID               string       `json:"id"`
	BaselineVersion  string       `json:"baseline_version"`
	CandidateVersion string       `json:"candidate_version"`
	Stage            Stage        `json:"stage"`
	Split            TrafficSplit `json:"split"`
	Active           bool         `json:"active"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
