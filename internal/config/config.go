// Package config loads the YAML configuration file and fills in
// defaults for anything not set. Every field has a usable default, so
// running without a config file at all is fine.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file. If path is empty, it
// searches the default locations and, when none exists, returns the
// built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		defaultPaths := []string{"isipython.yaml", "isipython.yml"}
		for _, defaultPath := range defaultPaths {
			if _, err := os.Stat(defaultPath); err == nil {
				path = defaultPath
				break
			}
		}
		if path == "" {
			cfg := applyDefaults(Config{})
			return &cfg, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg = applyDefaults(cfg)
	return &cfg, nil
}

// APIKey resolves the translator API key from the environment. Empty
// when unset; callers fall back to offline diagnostics.
func (c *Config) APIKey() string {
	return os.Getenv(c.Translator.APIKeyEnv)
}
