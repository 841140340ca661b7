// Package config loads the node configuration from a YAML file and
// turns the extension sections into genesis options.
package config

import (
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/errors"
)

// Config holds all application configuration.
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Logger struct {
		Level string `yaml:"level"`
	} `yaml:"logger"`
	// Extensions carries one section per extension package, handed
	// to the initializers verbatim.
	Extensions map[string]interface{} `yaml:"extensions"`
}

// Load reads the configuration from a YAML file, then applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "read config: %s", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "parse config: %s", err)
	}

	if v := os.Getenv("FEEMILL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FEEMILL_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	return cfg, nil
}

// Options converts the extension sections into the format the
// extension initializers consume.
func (c *Config) Options() (feemill.Options, error) {
	opts := make(feemill.Options, len(c.Extensions))
	for pkg, section := range c.Extensions {
		raw, err := json.Marshal(section)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "section %q: %s", pkg, err)
		}
		opts[pkg] = raw
	}
	return opts, nil
}
