package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aristath/modelgate/internal/events"
)

// Generator writes the model-config document to disk.
// Writes are atomic: the document is rendered to a temp file in the same
// directory and renamed over the target, so the mesh's config watcher
// never sees a half-written file.
type Generator struct {
	path     string
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewGenerator creates a generator writing to the given path
func NewGenerator(path string, eventBus *events.Bus, log zerolog.Logger) *Generator {
	return &Generator{
		path:     path,
		eventBus: eventBus,
		log:      log.With().Str("component", "manifest").Logger(),
	}
}

// Path returns the target file path
func (g *Generator) Path() string {
	return g.path
}

// Write renders the config to YAML and atomically replaces the target file
func (g *Generator) Write(cfg ModelConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal model config: %w", err)
	}

	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, g.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	baselineWeight, _ := strconv.Atoi(cfg.TrafficBaseline)
	candidateWeight, _ := strconv.Atoi(cfg.TrafficCandidate)
	g.eventBus.EmitTyped("manifest", &events.ManifestWrittenData{
		Path:            g.path,
		BaselineWeight:  baselineWeight,
		CandidateWeight: candidateWeight,
	})

	g.log.Info().
		Str("path", g.path).
		Str("baseline", cfg.TrafficBaseline).
		Str("candidate", cfg.TrafficCandidate).
		Msg("Model config written")
	return nil
}

// Read loads the current config from disk, nil if the file does not exist
func (g *Generator) Read() (*ModelConfig, error) {
	data, err := os.ReadFile(g.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var cfg ModelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &cfg, nil
}
