// Package config handles Tracksmith configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for Tracksmith.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Server settings for the local HTTP API
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Catalog settings for the imported-asset cache
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`

	// AssetAPI settings for the external asset-management API
	AssetAPI AssetAPIConfig `yaml:"asset_api" mapstructure:"asset_api"`

	// Sync settings for the sync-job trigger and status polling
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Timeline defaults applied to a fresh editor session
	Timeline TimelineConfig `yaml:"timeline" mapstructure:"timeline"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global Tracksmith settings.
type GlobalConfig struct {
	// DataDir is where Tracksmith stores its data (default: ~/.local/share/tracksmith).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/tracksmith).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// ServerConfig contains settings for the local HTTP API.
type ServerConfig struct {
	// Host is the interface to bind (default: 127.0.0.1).
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the TCP port to listen on.
	Port int `yaml:"port" mapstructure:"port"`
}

// CatalogConfig contains settings for the imported-asset sqlite cache.
type CatalogConfig struct {
	// Path is the sqlite database file path (default: DataDir/catalog.db).
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// AssetAPIConfig contains settings for the external asset-management API.
type AssetAPIConfig struct {
	// BaseURL is the API root (e.g. https://gateway.example.com/api).
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Tenant is the tenant name credentials belong to.
	Tenant string `yaml:"tenant" mapstructure:"tenant"`

	// ClientID and ClientSecret authenticate against the token endpoint.
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`

	// PageSize is the pagination size for asset listing.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SyncConfig contains settings for sync-job triggering and polling.
type SyncConfig struct {
	// BaseURL is the sync/job API root. Empty selects the local simulator.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// PollInterval is the fixed job-status polling interval.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// MaxPollAttempts bounds polling before a job is treated as timed out.
	MaxPollAttempts int `yaml:"max_poll_attempts" mapstructure:"max_poll_attempts"`

	// SimulateUploads runs the local upload simulator for idle clips.
	SimulateUploads bool `yaml:"simulate_uploads" mapstructure:"simulate_uploads"`

	// SimulatorTick is the progress step interval of the simulator.
	SimulatorTick time.Duration `yaml:"simulator_tick" mapstructure:"simulator_tick"`
}

// TimelineConfig contains defaults for a fresh timeline.
type TimelineConfig struct {
	// DurationSeconds is the total timeline length.
	DurationSeconds float64 `yaml:"duration_seconds" mapstructure:"duration_seconds"`

	// Zoom is the initial zoom in pixels per second.
	Zoom float64 `yaml:"zoom" mapstructure:"zoom"`

	// SnapIntervalSeconds is the grid snap interval.
	SnapIntervalSeconds float64 `yaml:"snap_interval_seconds" mapstructure:"snap_interval_seconds"`

	// GridSnap enables grid snapping.
	GridSnap bool `yaml:"grid_snap" mapstructure:"grid_snap"`

	// TrackHeight is the default lane height in pixels.
	TrackHeight int `yaml:"track_height" mapstructure:"track_height"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// RefreshInterval is how often to refresh the display.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// Theme is the color theme (default, dark, light).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows absolute timestamps in the clip inspector.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "tracksmith"),
			ConfigDir: filepath.Join(homeDir, ".config", "tracksmith"),
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8741,
		},
		Catalog: CatalogConfig{
			Path:          "", // Will be set to DataDir/catalog.db
			BusyTimeoutMs: 5000,
		},
		AssetAPI: AssetAPIConfig{
			PageSize: 100,
			Timeout:  30 * time.Second,
		},
		Sync: SyncConfig{
			PollInterval:    2 * time.Second,
			MaxPollAttempts: 150,
			SimulateUploads: true,
			SimulatorTick:   200 * time.Millisecond,
		},
		Timeline: TimelineConfig{
			DurationSeconds:     3600,
			Zoom:                10,
			SnapIntervalSeconds: 1,
			GridSnap:            false,
			TrackHeight:         60,
		},
		TUI: TUIConfig{
			RefreshInterval: 500 * time.Millisecond,
			Theme:           "default",
			ShowTimestamps:  true,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Sync.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("sync.poll_interval must be at least 100ms")
	}

	if c.Sync.MaxPollAttempts < 1 {
		return fmt.Errorf("sync.max_poll_attempts must be at least 1")
	}

	if c.Timeline.DurationSeconds <= 0 {
		return fmt.Errorf("timeline.duration_seconds must be positive")
	}

	if c.Timeline.Zoom <= 0 {
		return fmt.Errorf("timeline.zoom must be positive")
	}

	if c.AssetAPI.PageSize < 1 {
		return fmt.Errorf("asset_api.page_size must be at least 1")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// CatalogPath returns the full catalog database path.
func (c *Config) CatalogPath() string {
	if c.Catalog.Path != "" {
		return c.Catalog.Path
	}
	return filepath.Join(c.Global.DataDir, "catalog.db")
}
