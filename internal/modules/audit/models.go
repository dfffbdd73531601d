// Package audit keeps an append-only ledger of gate decisions, stage
// transitions, rollbacks, and alerts. Entries are never updated or
// deleted; the backing database runs at full durability.
package audit

import "time"

// Kind classifies an audit entry
type Kind string

const (
	KindGateDecision    Kind = "gate_decision"
	KindStageTransition Kind = "stage_transition"
	KindRollback        Kind = "rollback"
	KindAlert           Kind = "alert"
)

// Entry is one immutable audit record.
// Decision fields (Passed, RecallImprovement, PrecisionOK) are only set
// for gate_decision entries; RolloutID and stage fields only for
// transitions and rollbacks.
type Entry struct {
	ID                string    `json:"id"`
	Kind              Kind      `json:"kind"`
	RolloutID         string    `json:"rollout_id,omitempty"`
	BaselineVersion   string    `json:"baseline_version,omitempty"`
	CandidateVersion  string    `json:"candidate_version,omitempty"`
	Passed            *bool     `json:"passed,omitempty"`
	RecallImprovement *float64  `json:"recall_improvement,omitempty"`
	PrecisionOK       *bool     `json:"precision_ok,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	StageFrom         string    `json:"stage_from,omitempty"`
	StageTo           string    `json:"stage_to,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
