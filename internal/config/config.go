// Package config loads and validates the discussion configuration file.
// The core never parses configuration itself; it receives an
// already-validated structure built here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parley-dev/parley/pkg/domain"
	"gopkg.in/yaml.v3"
)

// DefaultThreshold is applied when the file omits convergenceThreshold.
const DefaultThreshold = 90

// DefaultResponsesDir is where session folders are created by default.
const DefaultResponsesDir = "responses"

// Model configures one participant's backend.
type Model struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	Provider string `json:"model_provider" yaml:"model_provider"`

	// Options carries provider-specific settings (e.g. base_url, max_tokens).
	// Adapters decode it into their own option structs.
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// Config mirrors the discussion configuration file.
type Config struct {
	ConvergenceThreshold int     `json:"convergenceThreshold" yaml:"convergenceThreshold"`
	ResponsesDir         string  `json:"responses_folder_path" yaml:"responses_folder_path"`
	Models               []Model `json:"models" yaml:"models"`
}

// Load reads a configuration file. YAML is detected by extension; everything
// else is parsed as JSON, the original format.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ConvergenceThreshold == 0 {
		c.ConvergenceThreshold = DefaultThreshold
	}
	if c.ResponsesDir == "" {
		c.ResponsesDir = DefaultResponsesDir
	}
}

// Validate checks the configuration before a session is built.
func (c *Config) Validate() error {
	if c.ConvergenceThreshold < 0 || c.ConvergenceThreshold > 100 {
		return &domain.ConfigError{Field: "convergenceThreshold", Reason: "must be in [0, 100]"}
	}
	if len(c.Models) < 2 {
		return &domain.ConfigError{Field: "models", Reason: "at least 2 models are required"}
	}
	seen := make(map[string]bool)
	for _, m := range c.Models {
		if m.Name == "" {
			return &domain.ConfigError{Field: "models", Reason: "model name cannot be empty"}
		}
		if seen[m.Name] {
			return &domain.ConfigError{Field: "models", Reason: fmt.Sprintf("duplicate model name %q", m.Name)}
		}
		seen[m.Name] = true
		if m.Provider == "" {
			return &domain.ConfigError{Field: "models", Reason: fmt.Sprintf("model %q: model_provider cannot be empty", m.Name)}
		}
		if m.Version == "" {
			return &domain.ConfigError{Field: "models", Reason: fmt.Sprintf("model %q: version cannot be empty", m.Name)}
		}
	}
	return nil
}

// Participants maps the model list to domain participants in file order.
func (c *Config) Participants() []domain.Participant {
	participants := make([]domain.Participant, len(c.Models))
	for i, m := range c.Models {
		participants[i] = domain.Participant{
			Index:      i,
			Name:       m.Name,
			Provider:   m.Provider,
			Model:      m.Version,
			Credential: m.APIKey,
		}
	}
	return participants
}
