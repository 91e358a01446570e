package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location. The file is optional.
const ConfigPath = "config.yaml"

// FileConfig holds the reporter settings. It reads the same config.yaml as
// the kt service and ignores the keys it does not use.
type FileConfig struct {
	LogLevel    string `yaml:"logLevel"`
	DatabaseURL string `yaml:"databaseURL"`
}

// Load reads path, applies environment overrides, then the explicit
// databaseURL override when non-empty, and validates the result.
func Load(path, databaseURL string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(databaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: databaseURL is required (set in config.yaml, DATABASE_URL or --database-url)")
	}
	return cfg, nil
}
