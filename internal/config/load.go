package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath names the environment variable that overrides the
	// configuration file location.
	EnvConfigPath = "TOOLGATE_CONFIG"

	// DefaultPath is the configuration file location when
	// TOOLGATE_CONFIG is unset.
	DefaultPath = "config/toolgate.yaml"
)

// Path returns the configuration file location, honoring TOOLGATE_CONFIG.
func Path() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return DefaultPath
}

// Load reads the configuration file at Path. A missing file is an error
// when TOOLGATE_CONFIG points at it explicitly; when only the default
// location is absent, Load logs a warning and returns the defaults.
// Parse and validation failures are always errors.
func Load() (*Config, error) {
	path := Path()
	cfg, err := LoadFile(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && os.Getenv(EnvConfigPath) == "" {
		slog.Warn("Config file not found, using defaults", "path", path)
		return Default(), nil
	}
	return nil, err
}

// LoadFile reads and validates the configuration file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML configuration document. Unknown
// fields are rejected; an empty document yields the defaults.
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &cfg, nil
}
