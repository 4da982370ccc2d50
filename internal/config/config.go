// Package config handles register configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when an environment value cannot be parsed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables read by Load.
const (
	EnvHome          = "BOURSE_HOME"
	EnvAPIURL        = "BOURSE_API_URL"
	EnvAPIToken      = "BOURSE_API_TOKEN"
	EnvAPITimeout    = "BOURSE_API_TIMEOUT"
	EnvAPIRateLimit  = "BOURSE_API_RATE_LIMIT"
	EnvEditionID     = "BOURSE_EDITION_ID"
	EnvRegister      = "BOURSE_REGISTER"
	EnvQueueCapacity = "BOURSE_QUEUE_CAPACITY"
	EnvDebug         = "BOURSE_DEBUG"
)

// Config holds all register configuration.
type Config struct {
	// Base directory for local data (database, logs)
	BaseDir string

	// Sale-event server settings
	API APIConfig

	// This register's identity within the sale event
	Register RegisterConfig

	// Debug enables SQL logging and debug-level logs on stderr
	Debug bool
}

// APIConfig holds sale-event server settings.
type APIConfig struct {
	URL       string
	Token     string
	Timeout   time.Duration
	RateLimit int // Requests per minute
}

// RegisterConfig identifies the register and bounds its offline queue.
type RegisterConfig struct {
	EditionID     string
	Number        int
	QueueCapacity int
}

// Load reads configuration from environment variables. A .env file in the
// working directory and one in the base directory are loaded first; values
// already present in the environment win.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	if home := os.Getenv(EnvHome); home != "" {
		cfg.BaseDir = home
	}

	if err := loadDotEnv(filepath.Join(cfg.BaseDir, ".env")); err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv(EnvEditionID); v != "" {
		cfg.Register.EditionID = v
	}

	var err error
	if cfg.API.Timeout, err = durationEnv(EnvAPITimeout, cfg.API.Timeout); err != nil {
		return nil, err
	}
	if cfg.API.RateLimit, err = positiveIntEnv(EnvAPIRateLimit, cfg.API.RateLimit); err != nil {
		return nil, err
	}
	if cfg.Register.Number, err = positiveIntEnv(EnvRegister, cfg.Register.Number); err != nil {
		return nil, err
	}
	if cfg.Register.QueueCapacity, err = positiveIntEnv(EnvQueueCapacity, cfg.Register.QueueCapacity); err != nil {
		return nil, err
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, EnvDebug, v)
		}
		cfg.Debug = debug
	}

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv loads a .env file if it exists.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: load %s: %w", ErrInvalidConfig, path, err)
}

func positiveIntEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q must be a positive integer", ErrInvalidConfig, key, v)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q must be a positive duration", ErrInvalidConfig, key, v)
	}
	return d, nil
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	dirs := []string{
		cfg.BaseDir,
		filepath.Join(cfg.BaseDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
