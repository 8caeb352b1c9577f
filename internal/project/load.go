package project

import (
	"fmt"
	"os"

	"github.com/agentx-labs/blueprint/internal/manifest"
	"go.yaml.in/yaml/v3"
)

// Load reads a YAML or JSON project file, validates it against the project
// schema, and returns the normalized configuration.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes project file content. path is only used in error messages.
func Parse(data []byte, path string) (*Configuration, error) {
	result, err := manifest.ValidateProject(data)
	if err != nil {
		return nil, fmt.Errorf("validating project file %s: %w", path, err)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("project file %s: %w", path, err)
	}

	// JSON is a subset of YAML, so one decoder serves both formats.
	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing project file %s: %w", path, err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("project file %s: %w", path, err)
	}
	return &cfg, nil
}
