package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/markdave123-py/researchhub/internal/models"
)

const defaultBaseURL = "http://localhost:8080"

// Config is the client state persisted between invocations.
type Config struct {
	BaseURL         string                  `yaml:"baseUrl"`
	AccessToken     string                  `yaml:"accessToken,omitempty"`
	ActiveWorkspace string                  `yaml:"activeWorkspace,omitempty"`
	LastSearch      []models.CandidatePaper `yaml:"lastSearch,omitempty"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".researchhub.yaml"
	}
	return filepath.Join(home, ".researchhub.yaml")
}

// LoadConfig reads path; a missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{BaseURL: defaultBaseURL}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return cfg, nil
}

// Save writes the config readable only by the owner since it holds a credential.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
