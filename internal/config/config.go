package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/franckalain/nutrisnap/internal/database"
	"github.com/franckalain/nutrisnap/internal/store"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Port      string `json:"port"`
		StaticDir string `json:"static_dir"`
		Debug     bool   `json:"debug"`
	} `json:"server"`

	Database struct {
		Type string `json:"type"` // "sqlite", "redis" or "memory"
		Path string `json:"path"`
	} `json:"database"`

	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
		Prefix   string `json:"prefix"`
	} `json:"redis"`

	Store struct {
		Key string `json:"key"`
	} `json:"store"`

	ML struct {
		Type           string `json:"type"`   // "google" or "anthropic"
		Config         string `json:"config"` // provider config file, optional
		TimeoutSeconds int    `json:"timeout_seconds"`
		MaxToolRounds  int    `json:"max_tool_rounds"`
		Region         string `json:"region"`
	} `json:"ml"`
}

// Timeout returns the estimation timeout; zero disables it
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.ML.TimeoutSeconds) * time.Second
}

// DatabaseConfig converts the database and redis sections for database.Open
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Type:          c.Database.Type,
		Path:          c.Database.Path,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
		RedisPrefix:   c.Redis.Prefix,
	}
}

// LoadEnv loads a .env file from the working directory if one exists
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env file: %v", err)
	}
}

// LoadConfig loads configuration from a JSON file. Environment variables
// override the file for deployment-specific values.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()

	// Handle missing values
	if config.Server.Port == "" {
		// Fail if port is not set
		return nil, fmt.Errorf("server port is not set in config file")
	}
	if config.Server.StaticDir == "" {
		config.Server.StaticDir = "./static"
	}
	if config.Database.Type == "" {
		config.Database.Type = "sqlite"
	}
	if config.Database.Path == "" {
		config.Database.Path = "nutrisnap.db"
	}
	if config.Store.Key == "" {
		config.Store.Key = store.DefaultKey
	}
	if config.ML.Type == "" {
		config.ML.Type = "google"
	}
	if config.ML.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("ml.timeout_seconds must not be negative")
	}

	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NUTRISNAP_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("NUTRISNAP_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("NUTRISNAP_ML_TYPE"); v != "" {
		c.ML.Type = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("NUTRISNAP_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}
