package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseConfigYAML parses a Config from YAML bytes on top of Default() and validates it.
func ParseConfigYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseConfigYAMLString parses a Config from a YAML string and validates it.
func ParseConfigYAMLString(yamlText string) (*Config, error) {
	return ParseConfigYAML([]byte(yamlText))
}

// MarshalConfigYAML renders a config back to YAML (used to snapshot runs in the store).
func MarshalConfigYAML(cfg *Config) (string, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config yaml: %w", err)
	}
	return string(out), nil
}

// applyDefaults fills zero-valued search settings. Zero seed is kept and means "random".
func applyDefaults(cfg *Config) {
	if cfg.Evolution != nil {
		def := DefaultEvolution()
		e := cfg.Evolution
		if e.Strategy == "" {
			e.Strategy = def.Strategy
		}
		if e.Init == "" {
			e.Init = def.Init
		}
		if e.PopSize == 0 {
			e.PopSize = def.PopSize
		}
		if e.MaxGenerations == 0 {
			e.MaxGenerations = def.MaxGenerations
		}
		if len(e.Mutation) == 0 {
			e.Mutation = def.Mutation
		}
		if e.Recombination == 0 {
			e.Recombination = def.Recombination
		}
		if e.Tol == 0 {
			e.Tol = def.Tol
		}
	}
	if cfg.Grid != nil && cfg.Grid.Workers == 0 {
		cfg.Grid.Workers = 1
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Report.Top == 0 {
		cfg.Report.Top = 10
	}
}
