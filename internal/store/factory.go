package store

import (
	"fmt"
	"os"
	"path/filepath"

	"chatpulse/internal/config"
	"chatpulse/internal/pulse"
)

// NewStoreFromConfig creates a Store based on the database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig) (pulse.Store, error) {
	path, err := DatabasePath(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Type == "sqlite" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return Open(path)
}

// DatabasePath resolves the sqlite file path for the given database config.
func DatabasePath(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return "", fmt.Errorf("data_dir required for sqlite database")
		}
		return filepath.Join(cfg.DataDir, "chatpulse.db"), nil
	case "memory":
		return ":memory:", nil
	default:
		return "", fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
