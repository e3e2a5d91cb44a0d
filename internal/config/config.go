// Package config holds the coursebook client configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backend names.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Retry ceilings. Configuration may lower them but never raise them.
const (
	MaxRetriesLimit    = 3
	RetryMaxDelayLimit = 10 * time.Second
)

// ClientConfig holds configuration for the coursebook CLI.
type ClientConfig struct {
	Server         string        `yaml:"server"`           // Course API base URL
	Storage        string        `yaml:"storage"`          // Session storage backend: file, sqlite, redis, memory
	StateDir       string        `yaml:"state_dir"`        // Directory for file and sqlite storage (default ~/.coursebook)
	RedisAddr      string        `yaml:"redis_addr"`       // Redis address for the redis backend
	Timeout        time.Duration `yaml:"timeout"`          // Per-attempt request timeout
	MaxRetries     int           `yaml:"max_retries"`      // Retries after the first attempt
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"` // First backoff delay
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`  // Backoff ceiling
	LogLevel       string        `yaml:"log_level"`        // debug, info, warn, error
	LogFormat      string        `yaml:"log_format"`       // text, json
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Server:         "http://localhost:5000",
		Storage:        StorageFile,
		RedisAddr:      "localhost:6379",
		Timeout:        15 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		RetryMaxDelay:  10 * time.Second,
		LogLevel:       "warn",
		LogFormat:      "text",
	}
}

// DefaultStateDir returns ~/.coursebook.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".coursebook"), nil
}

// Load builds a config from defaults, the YAML file at path, a .env file in
// the working directory and the environment, in that order of precedence.
// An empty path means <state dir>/config.yaml; a missing default file is
// not an error, a missing explicit file is.
func Load(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	explicit := path != ""
	if !explicit {
		dir, err := DefaultStateDir()
		if err == nil {
			path = filepath.Join(dir, "config.yaml")
		}
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *ClientConfig) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *ClientConfig) applyEnv() error {
	if v := os.Getenv("COURSEBOOK_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("COURSEBOOK_STORAGE"); v != "" {
		c.Storage = v
	}
	if v := os.Getenv("COURSEBOOK_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("COURSEBOOK_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("COURSEBOOK_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COURSEBOOK_MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	if v := os.Getenv("COURSEBOOK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COURSEBOOK_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate rejects configurations the client cannot run with.
func (c ClientConfig) Validate() error {
	if c.Server == "" {
		return errors.New("server URL is required")
	}
	switch c.Storage {
	case StorageFile, StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q (want file, sqlite, redis or memory)", c.Storage)
	}
	if c.MaxRetries < 0 || c.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("max_retries must be between 0 and %d, got %d", MaxRetriesLimit, c.MaxRetries)
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("retry_base_delay must be positive, got %s", c.RetryBaseDelay)
	}
	if c.RetryMaxDelay <= 0 || c.RetryMaxDelay > RetryMaxDelayLimit {
		return fmt.Errorf("retry_max_delay must be positive and at most %s, got %s", RetryMaxDelayLimit, c.RetryMaxDelay)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
