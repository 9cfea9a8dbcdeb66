package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// BaseConfig provides common configuration functionality
type BaseConfig struct {
	ConfigPath string `json:"-"`
}

// LoadConfig loads configuration from a file into config. An explicit path
// must exist and parse; otherwise config/<envPrefix>.json is tried and the
// caller falls back to environment variables.
func (c *BaseConfig) LoadConfig(configPath string, envPrefix string, config interface{}) error {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read %s config: %w", envPrefix, err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse %s config: %w", envPrefix, err)
		}
		log.Printf("Loaded configuration from file: %s", configPath)
		return nil
	}

	defaultPath := filepath.Join("config", fmt.Sprintf("%s.json", envPrefix))
	data, err := os.ReadFile(defaultPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse %s: %w", defaultPath, err)
		}
		log.Printf("Loaded configuration from default file: %s", defaultPath)
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to read %s: %w", defaultPath, err)
	}

	log.Printf("Using environment variables for %s configuration", envPrefix)
	return nil
}

func envOr(current, key string) string {
	if current != "" {
		return current
	}
	return os.Getenv(key)
}
