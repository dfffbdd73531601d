// Package rollout manages the staged promotion ramp for candidate models.
//
// A rollout walks the ramp shadow → canary-20 → canary-50 → full. Each
// forward transition requires a fresh passing gate decision: the first on
// offline holdout metrics, later ones on metrics observed from production
// traffic at the current split. A failed decision holds the current stage;
// only an explicit rollback (operator action or alert breach) moves a
// rollout to rolled-back, which returns all traffic to the baseline.
package rollout

import "fmt"

// Ramp maps stages to their traffic splits and successor stages.
// The first-promotion split is policy, not derived from metrics; the
// demo convention is 80/20 so the candidate is validated on real traffic
// before any larger exposure.
type Ramp struct {
	initial TrafficSplit // split entered when leaving shadow
}

// NewRamp creates a ramp with the given first-promotion split
func NewRamp(initial TrafficSplit) Ramp {
	return Ramp{initial: initial}
}

// DefaultRamp returns the standard 80/20 first-promotion ramp
func DefaultRamp() Ramp {
	return NewRamp(TrafficSplit{BaselineWeight: 80, CandidateWeight: 20})
}

// Next returns the successor stage, or an error if the stage is terminal
func (r Ramp) Next(current Stage) (Stage, error) {
	switch current {
	case StageShadow:
		return StageCanary20, nil
	case StageCanary20:
		return StageCanary50, nil
	case StageCanary50:
		return StageFull, nil
	case StageFull, StageRolledBack:
		return "", fmt.Errorf("stage %s is terminal, cannot advance", current)
	default:
		return "", fmt.Errorf("unknown stage %q", current)
	}
}

// SplitFor returns the traffic split a stage runs at
func (r Ramp) SplitFor(stage Stage) (TrafficSplit, error) {
	switch stage {
	case StageShadow, StageRolledBack:
		return AllBaseline(), nil
	case StageCanary20:
		return r.initial, nil
	case StageCanary50:
		return TrafficSplit{BaselineWeight: 50, CandidateWeight: 50}, nil
	case StageFull:
		return TrafficSplit{BaselineWeight: 0, CandidateWeight: 100}, nil
	default:
		return TrafficSplit{}, fmt.Errorf("unknown stage %q", stage)
	}
}
