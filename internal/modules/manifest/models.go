// Package manifest renders and writes the model-config document consumed
// by the serving mesh. The document pins the baseline and candidate
// artifact locations and the traffic split between them.
package manifest

import (
	"fmt"
	"strconv"

	"github.com/aristath/modelgate/internal/modules/registry"
)

// ModelConfig is the serving-mesh configuration document.
// Traffic weights are serialized as strings because the mesh's config
// loader treats every value as text.
type ModelConfig struct {
	BaselineStorageURI  string `yaml:"fraud-v1-storage-uri"`
	CandidateStorageURI string `yaml:"fraud-v2-storage-uri"`
	TrafficBaseline     string `yaml:"traffic-split-baseline"`
	TrafficCandidate    string `yaml:"traffic-split-candidate"`
}

// NewModelConfig validates inputs and builds a config document
func NewModelConfig(baselineURI, candidateURI string, baselineWeight, candidateWeight int) (ModelConfig, error) {
	if err := registry.ValidateStorageURI(baselineURI); err != nil {
		return ModelConfig{}, fmt.Errorf("baseline storage URI: %w", err)
	}
	if err := registry.ValidateStorageURI(candidateURI); err != nil {
		return ModelConfig{}, fmt.Errorf("candidate storage URI: %w", err)
	}
	if baselineWeight < 0 || candidateWeight < 0 {
		return ModelConfig{}, fmt.Errorf("traffic weights must be non-negative, got %d/%d", baselineWeight, candidateWeight)
	}
	if baselineWeight+candidateWeight != 100 {
		return ModelConfig{}, fmt.Errorf("traffic weights must sum to 100, got %d", baselineWeight+candidateWeight)
	}

	return ModelConfig{
		BaselineStorageURI:  baselineURI,
		CandidateStorageURI: candidateURI,
		TrafficBaseline:     strconv.Itoa(baselineWeight),
		TrafficCandidate:    strconv.Itoa(candidateWeight),
	}, nil
}
