package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"reddot-watch/feedsreader/internal/prefs"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath    string
	PrefsPath string // empty means next to the database
	OutputDir string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Processing settings
	WorkerCount  int
	Interval     time.Duration
	FetchTimeout time.Duration
	SeedDemo     bool

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:       DefaultDBPath(),
		OutputDir:    DefaultOutput,
		ServerHost:   DefaultServerHost,
		ServerPort:   DefaultServerPort,
		APIKey:       GetEnvString(EnvAPIKey, ""),
		WorkerCount:  DefaultWorkerCount,
		Interval:     time.Duration(DefaultInterval) * time.Minute,
		FetchTimeout: time.Duration(DefaultFetchTimeout) * time.Second,
		SeedDemo:     DefaultSeedDemo,
		LogLevel:     logLevel,
	}
}

// DefaultDBPath returns the database location in the per-user profile
// directory, or in the working directory when there is none.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DBFileName
	}
	return filepath.Join(dir, AppDirName, DBFileName)
}

// PreferencesPath returns the preferences file location.
func (c *Config) PreferencesPath() string {
	if c.PrefsPath != "" {
		return c.PrefsPath
	}
	return filepath.Join(filepath.Dir(c.DBPath), prefs.FileName)
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("database path cannot be empty")
	case c.ServerPort < 0 || c.ServerPort > 65535:
		return fmt.Errorf("invalid port %d", c.ServerPort)
	case c.WorkerCount < 0:
		return fmt.Errorf("invalid worker count %d", c.WorkerCount)
	case c.Interval < 0:
		return fmt.Errorf("invalid interval %s", c.Interval)
	case c.FetchTimeout < 0:
		return fmt.Errorf("invalid fetch timeout %s", c.FetchTimeout)
	}
	return nil
}
