package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8741, cfg.Server.Port)
	assert.True(t, cfg.Sync.SimulateUploads)
	assert.Equal(t, 3600.0, cfg.Timeline.DurationSeconds)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"poll interval too small", func(c *Config) { c.Sync.PollInterval = time.Millisecond }},
		{"no poll attempts", func(c *Config) { c.Sync.MaxPollAttempts = 0 }},
		{"zero duration", func(c *Config) { c.Timeline.DurationSeconds = 0 }},
		{"zero zoom", func(c *Config) { c.Timeline.Zoom = 0 }},
		{"zero page size", func(c *Config) { c.AssetAPI.PageSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCatalogPathDefaultsUnderDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Global.DataDir = "/tmp/tracksmith-test"
	assert.Equal(t, filepath.Join("/tmp/tracksmith-test", "catalog.db"), cfg.CatalogPath())

	cfg.Catalog.Path = "/elsewhere/cat.db"
	assert.Equal(t, "/elsewhere/cat.db", cfg.CatalogPath())
}

func TestLoaderReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
server:
  port: 9000
timeline:
  duration_seconds: 7200
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loader := NewLoader()
	loader.SetConfigFile(path)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 7200.0, cfg.Timeline.DurationSeconds)
	// Untouched sections keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Sync.PollInterval)
}

func TestLoaderErrorsOnMissingExplicitFile(t *testing.T) {
	loader := NewLoader()
	loader.SetConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := loader.Load()
	assert.Error(t, err)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), expandTilde("~/x"))
	assert.Equal(t, home, expandTilde("~"))
	assert.Equal(t, "/abs/path", expandTilde("/abs/path"))
	assert.Equal(t, "", expandTilde(""))
}
