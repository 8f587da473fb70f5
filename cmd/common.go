// Package cmd provides the duoaudio CLI commands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"duoaudio/config"
	"duoaudio/content"
	"duoaudio/runner/storage"
)

// ConfigFlag is shared by every command that reads duoaudio.yml
func ConfigFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the config file",
		Value:   config.DefaultPath,
		EnvVars: []string{"DUOAUDIO_CONFIG"},
	}
}

// loadConfig reads .env and the config file, then applies environment overrides
func loadConfig(path string) (*config.Config, error) {
	// Load .env file if it exists (ignore errors if it doesn't)
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// openStorage opens the run history database in the configured data directory
func openStorage(cfg *config.Config) (*storage.Storage, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		dataDir = filepath.Join(cwd, "data")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "duoaudio.db")
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Debugf("💾 Run history: %s", dbPath)
	return store, nil
}

func newClient(cfg *config.Config) (*content.Client, error) {
	client, err := content.NewClient(cfg.ClientConfig())
	if err != nil {
		return nil, err
	}
	if cfg.API.AdminKey == "" {
		log.Warn("⚠️  ADMIN_BYPASS_KEY is not set, admin requests may be rejected")
	}
	return client, nil
}
