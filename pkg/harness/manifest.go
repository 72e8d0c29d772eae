package harness

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest describes a failed iteration and the files retained for it
type Manifest struct {
	Phase     string    `yaml:"phase"`
	Iteration int       `yaml:"iteration"`
	Error     string    `yaml:"error"`
	Details   []string  `yaml:"details,omitempty"`
	Artifacts []string  `yaml:"artifacts"`
	Time      time.Time `yaml:"time"`
}

func NewManifest(result PhaseResult, artifacts []string) *Manifest {
	manifest := &Manifest{
		Phase:     result.Phase,
		Iteration: result.FailedIteration,
		Artifacts: artifacts,
		Time:      time.Now().UTC(),
	}
	if result.Err != nil {
		manifest.Error = result.Err.Error()
		manifest.Details = errorDetails(result.Err)
	}
	return manifest
}

// WriteManifest stores the manifest as YAML
func WriteManifest(path string, manifest *Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding failure manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &manifest, nil
}
