package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv(EnvAPIKey, "k")

	cfg := DefaultConfig()
	assert.Equal(t, DBFileName, filepath.Base(cfg.DBPath))
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.Interval)
	assert.Zero(t, cfg.FetchTimeout)
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:8421", cfg.ListenAddr())
	assert.NoError(t, cfg.Validate())
}

func TestPreferencesPath(t *testing.T) {
	cfg := &Config{DBPath: filepath.Join("profile", "feeds-reader", DBFileName)}
	assert.Equal(t, filepath.Join("profile", "feeds-reader", "prefs.toml"), cfg.PreferencesPath())

	cfg.PrefsPath = "/etc/feeds/prefs.toml"
	assert.Equal(t, "/etc/feeds/prefs.toml", cfg.PreferencesPath())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"port", func(c *Config) { c.ServerPort = 70000 }},
		{"workers", func(c *Config) { c.WorkerCount = -1 }},
		{"interval", func(c *Config) { c.Interval = -time.Minute }},
		{"timeout", func(c *Config) { c.FetchTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("FEEDSREADER_TEST_INT", "12")
	t.Setenv("FEEDSREADER_TEST_BAD_INT", "twelve")
	t.Setenv("FEEDSREADER_TEST_BOOL", "false")
	t.Setenv("FEEDSREADER_TEST_EMPTY", "")
	t.Setenv("FEEDSREADER_TEST_MINUTES", "15")
	t.Setenv("FEEDSREADER_TEST_DURATION", "90s")
	t.Setenv("FEEDSREADER_TEST_LEVEL", "warn")

	assert.Equal(t, 12, GetEnvInt("FEEDSREADER_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("FEEDSREADER_TEST_BAD_INT", 1))
	assert.Equal(t, 1, GetEnvInt("FEEDSREADER_TEST_UNSET", 1))
	assert.False(t, GetEnvBool("FEEDSREADER_TEST_BOOL", true))
	assert.True(t, GetEnvBool("FEEDSREADER_TEST_EMPTY", true))

	assert.Equal(t, "", GetEnvString("FEEDSREADER_TEST_EMPTY", "default"))
	assert.Equal(t, "default", GetEnvString("FEEDSREADER_TEST_UNSET", "default"))

	assert.Equal(t, 15*time.Minute, GetEnvDuration("FEEDSREADER_TEST_MINUTES", time.Hour, time.Minute))
	assert.Equal(t, 90*time.Second, GetEnvDuration("FEEDSREADER_TEST_DURATION", time.Hour, time.Minute))
	assert.Equal(t, time.Hour, GetEnvDuration("FEEDSREADER_TEST_BAD_INT", time.Hour, time.Minute))

	assert.Equal(t, zerolog.WarnLevel, GetEnvLogLevel("FEEDSREADER_TEST_LEVEL", zerolog.InfoLevel))
}
