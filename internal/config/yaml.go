package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// loadConfigFile reads a YAML config file on top of the built-in defaults.
// An empty path is not an error — defaults are returned as-is.
func loadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// findConfigFile searches standard locations for a config file.
// Returns empty string if none exists (non-fatal).
func findConfigFile() string {
	locations := []string{
		"./videolab.yaml",
		"./videolab.yml",
		filepath.Join(os.Getenv("HOME"), ".videolab", "config.yaml"),
		"/etc/videolab/config.yaml",
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
