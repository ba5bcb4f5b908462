// Package config loads and saves the YAML policy file that configures
// the issue synchronizer (internal/model.IssueConfig) plus the tracker
// credential it needs.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/climbsec/vibecheck/internal/model"
)

// Config is the on-disk shape: the issue policy plus the tracker
// credential, which is never written back in plaintext to a
// world-readable file.
type Config struct {
	Issue      model.IssueConfig `yaml:"issue"`
	TrackerURL string            `yaml:"tracker_url,omitempty"`
	Token      string            `yaml:"token,omitempty"`
}

// Default returns the configuration used when no config file is present:
// the documented IssueConfig defaults, no tracker override.
func Default() *Config {
	return &Config{Issue: model.DefaultIssueConfig()}
}

// Path returns the default config file location under the user's home
// directory, creating the containing directory if needed.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".vibecheck")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path, or returns Default() if it does
// not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path. File permissions are restrictive (0600)
// because the config carries a tracker credential.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	if err := os.Chmod(path, 0600); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
