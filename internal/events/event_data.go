package events

// EventData is the interface that all typed event payloads implement.
// This allows for type-safe event data while maintaining flexibility.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
	// ToMap flattens the payload for wire serialization
	ToMap() map[string]interface{}
}

// GateEvaluatedData contains data for GateEvaluated events
type GateEvaluatedData struct {
	BaselineVersion   string  `json:"baseline_version"`
	CandidateVersion  string  `json:"candidate_version"`
	Passed            bool    `json:"passed"`
	RecallImprovement float64 `json:"recall_improvement"`
	PrecisionOK       bool    `json:"precision_ok"`
	Reason            string  `json:"reason"`
}

// EventType returns the event type for GateEvaluatedData
func (d *GateEvaluatedData) EventType() EventType {
	return GateEvaluated
}

// ToMap flattens the payload for wire serialization
func (d *GateEvaluatedData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"baseline_version":   d.BaselineVersion,
		"candidate_version":  d.CandidateVersion,
		"passed":             d.Passed,
		"recall_improvement": d.RecallImprovement,
		"precision_ok":       d.PrecisionOK,
		"reason":             d.Reason,
	}
}

// StageAdvancedData contains data for StageAdvanced events
type StageAdvancedData struct {
	RolloutID        string `json:"rollout_id"`
	From             string `json:"from"`
	To               string `json:"to"`
	BaselineWeight   int    `json:"baseline_weight"`
	CandidateWeight  int    `json:"candidate_weight"`
	CandidateVersion string `json:"candidate_version"`
}

// EventType returns the event type for StageAdvancedData
func (d *StageAdvancedData) EventType() EventType {
	return StageAdvanced
}

// ToMap flattens the payload for wire serialization
func (d *StageAdvancedData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"rollout_id":        d.RolloutID,
		"from":              d.From,
		"to":                d.To,
		"baseline_weight":   d.BaselineWeight,
		"candidate_weight":  d.CandidateWeight,
		"candidate_version": d.CandidateVersion,
	}
}

// RollbackTriggeredData contains data for RollbackTriggered events
type RollbackTriggeredData struct {
	RolloutID string `json:"rollout_id"`
	From      string `json:"from"`
	Reason    string `json:"reason"`
}

// EventType returns the event type for RollbackTriggeredData
func (d *RollbackTriggeredData) EventType() EventType {
	return RollbackTriggered
}

// ToMap flattens the payload for wire serialization
func (d *RollbackTriggeredData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"rollout_id": d.RolloutID,
		"from":       d.From,
		"reason":     d.Reason,
	}
}

// AlertRaisedData contains data for AlertRaised events
type AlertRaisedData struct {
	Model     string  `json:"model"`
	Metric    string  `json:"metric"` // precision | recall
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// EventType returns the event type for AlertRaisedData
func (d *AlertRaisedData) EventType() EventType {
	return AlertRaised
}

// ToMap flattens the payload for wire serialization
func (d *AlertRaisedData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"model":     d.Model,
		"metric":    d.Metric,
		"value":     d.Value,
		"threshold": d.Threshold,
	}
}

// ManifestWrittenData contains data for ManifestWritten events
type ManifestWrittenData struct {
	Path            string `json:"path"`
	BaselineWeight  int    `json:"baseline_weight"`
	CandidateWeight int    `json:"candidate_weight"`
}

// EventType returns the event type for ManifestWrittenData
func (d *ManifestWrittenData) EventType() EventType {
	return ManifestWritten
}

// ToMap flattens the payload for wire serialization
func (d *ManifestWrittenData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"path":             d.Path,
		"baseline_weight":  d.BaselineWeight,
		"candidate_weight": d.CandidateWeight,
	}
}
