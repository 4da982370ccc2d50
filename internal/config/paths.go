package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Database string // Local SQLite store
	Logs     string // Log directory
	EnvFile  string // Optional per-register .env
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Database: filepath.Join(cfg.BaseDir, "bourse.db"),
		Logs:     filepath.Join(cfg.BaseDir, "logs"),
		EnvFile:  filepath.Join(cfg.BaseDir, ".env"),
	}
}

// DefaultBaseDir returns the default base directory ($XDG_DATA_HOME/bourse).
func DefaultBaseDir() string {
	return filepath.Join(xdg.DataHome, "bourse")
}
