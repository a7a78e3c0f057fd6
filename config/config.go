// Package config provides configuration parsing for sysgauge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvInterface = "SYSGAUGE_INTERFACE"
	EnvTheme     = "SYSGAUGE_THEME"
)

// Config represents the sysgauge configuration.
type Config struct {
	// Daemon holds headless mode settings.
	Daemon DaemonConfig `yaml:"daemon"`

	// Sampling holds the polling periods.
	Sampling SamplingConfig `yaml:"sampling"`

	// Network holds interface selection and gauge floors.
	Network NetworkConfig `yaml:"network"`

	// Processes holds process table settings.
	Processes ProcessesConfig `yaml:"processes"`

	// Enumerations holds the cached listings (services, programs, startup).
	Enumerations EnumerationsConfig `yaml:"enumerations"`

	// Display holds TUI rendering settings.
	Display DisplayConfig `yaml:"display"`
}

// DaemonConfig holds headless mode settings.
type DaemonConfig struct {
	// CacheDir is where the latest snapshots are persisted for -status.
	CacheDir string `yaml:"cache_dir"`
	// LogFile is the path for daemon log output.
	LogFile string `yaml:"log_file"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// SnapshotTTL is how old a persisted snapshot may be before -status
	// reports it as stale (duration string).
	SnapshotTTL string `yaml:"snapshot_ttl"`
}

// SamplingConfig holds the polling periods (duration strings).
type SamplingConfig struct {
	NetworkInterval string `yaml:"network_interval"`
	ProcessInterval string `yaml:"process_interval"`
	SystemInterval  string `yaml:"system_interval"`
	// MinSampleInterval is the shortest sample spacing that yields a rate.
	MinSampleInterval string `yaml:"min_sample_interval"`
}

// NetworkConfig holds interface selection and gauge floors.
type NetworkConfig struct {
	// Interface pins the adapter. Empty picks the busiest one.
	Interface string `yaml:"interface"`
	// DownloadMinCeiling and UploadMinCeiling are in Mbps.
	DownloadMinCeiling float64 `yaml:"download_min_ceiling"`
	UploadMinCeiling   float64 `yaml:"upload_min_ceiling"`
	// DiskMinCeiling is in MB/s.
	DiskMinCeiling float64 `yaml:"disk_min_ceiling"`
	// DiskPath is the mount point whose usage is reported.
	DiskPath string `yaml:"disk_path"`
}

// ProcessesConfig holds process table settings.
type ProcessesConfig struct {
	// MaxMissedCycles is how many polls a process may be missing before its
	// CPU baseline is dropped.
	MaxMissedCycles int `yaml:"max_missed_cycles"`
	// CoreCount overrides the logical CPU count. Zero detects it.
	CoreCount int `yaml:"core_count"`
	// Top limits the rows shown. Zero shows all.
	Top int `yaml:"top"`
}

// EnumerationsConfig holds the cached listing sources.
type EnumerationsConfig struct {
	// CacheTTL is how long a listing is served before it is rebuilt.
	CacheTTL      string   `yaml:"cache_ttl"`
	SystemdDirs   []string `yaml:"systemd_dirs"`
	DpkgStatus    string   `yaml:"dpkg_status"`
	AutostartDirs []string `yaml:"autostart_dirs"`
}

// DisplayConfig holds TUI rendering settings.
type DisplayConfig struct {
	// Theme selects the display theme: "minimal", "full", or "monitoring".
	Theme string `yaml:"theme"`
	// EnableMouse turns on clickable tabs.
	EnableMouse bool `yaml:"enable_mouse"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	configHome := filepath.Join(home, ".config")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configHome = xdg
	}

	return &Config{
		Daemon: DaemonConfig{
			CacheDir:    filepath.Join(home, ".cache", "sysgauge"),
			LogFile:     filepath.Join(home, ".local", "log", "sysgauge.log"),
			LogLevel:    "info",
			SnapshotTTL: "30s",
		},
		Sampling: SamplingConfig{
			NetworkInterval:   "500ms",
			ProcessInterval:   "2s",
			SystemInterval:    "1s",
			MinSampleInterval: "500ms",
		},
		Network: NetworkConfig{
			DownloadMinCeiling: 100,
			UploadMinCeiling:   50,
			DiskMinCeiling:     50,
			DiskPath:           "/",
		},
		Processes: ProcessesConfig{
			MaxMissedCycles: 1,
			Top:             50,
		},
		Enumerations: EnumerationsConfig{
			CacheTTL: "2m",
			SystemdDirs: []string{
				"/etc/systemd/system",
				"/run/systemd/system",
				"/lib/systemd/system",
				"/usr/lib/systemd/system",
			},
			DpkgStatus: "/var/lib/dpkg/status",
			AutostartDirs: []string{
				filepath.Join(configHome, "autostart"),
				"/etc/xdg/autostart",
			},
		},
		Display: DisplayConfig{
			Theme:       "monitoring",
			EnableMouse: true,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sysgauge", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sysgauge", "config.yaml")
}

// LoadConfig loads configuration from a YAML file, merging with defaults,
// then applies environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvInterface); v != "" {
		c.Network.Interface = v
	}
	if v := os.Getenv(EnvTheme); v != "" {
		c.Display.Theme = v
	}
}

// Validate checks the configuration for required fields and logical consistency.
func (c *Config) Validate() error {
	// Daemon validation
	if c.Daemon.CacheDir == "" {
		return fmt.Errorf("daemon.cache_dir is required")
	}
	if c.Daemon.LogFile == "" {
		return fmt.Errorf("daemon.log_file is required")
	}
	switch c.Daemon.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("daemon.log_level must be debug, info, warn or error, got %q", c.Daemon.LogLevel)
	}

	durations := []struct {
		field, value string
	}{
		{"daemon.snapshot_ttl", c.Daemon.SnapshotTTL},
		{"sampling.network_interval", c.Sampling.NetworkInterval},
		{"sampling.process_interval", c.Sampling.ProcessInterval},
		{"sampling.system_interval", c.Sampling.SystemInterval},
		{"sampling.min_sample_interval", c.Sampling.MinSampleInterval},
		{"enumerations.cache_ttl", c.Enumerations.CacheTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", d.field, d.value, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.field, d.value)
		}
	}

	// Network validation
	if c.Network.DownloadMinCeiling <= 0 || c.Network.UploadMinCeiling <= 0 || c.Network.DiskMinCeiling <= 0 {
		return fmt.Errorf("network min ceilings must be positive")
	}

	// Processes validation
	if c.Processes.MaxMissedCycles < 1 {
		return fmt.Errorf("processes.max_missed_cycles must be at least 1, got %d", c.Processes.MaxMissedCycles)
	}
	if c.Processes.CoreCount < 0 {
		return fmt.Errorf("processes.core_count must be non-negative, got %d", c.Processes.CoreCount)
	}
	if c.Processes.Top < 0 {
		return fmt.Errorf("processes.top must be non-negative, got %d", c.Processes.Top)
	}

	// Display validation
	validThemes := map[string]bool{"minimal": true, "full": true, "monitoring": true}
	if !validThemes[c.Display.Theme] {
		return fmt.Errorf("display.theme must be 'minimal', 'full', or 'monitoring', got %q", c.Display.Theme)
	}
	return nil
}

// ParseDuration parses s, returning fallback when s is empty or invalid.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Intervals returns the parsed polling periods.
func (c *Config) Intervals() (network, processes, system, minSample time.Duration) {
	return ParseDuration(c.Sampling.NetworkInterval, 500*time.Millisecond),
		ParseDuration(c.Sampling.ProcessInterval, 2*time.Second),
		ParseDuration(c.Sampling.SystemInterval, time.Second),
		ParseDuration(c.Sampling.MinSampleInterval, 500*time.Millisecond)
}

// EnumerationTTL returns the parsed cache TTL.
func (c *Config) EnumerationTTL() time.Duration {
	return ParseDuration(c.Enumerations.CacheTTL, 2*time.Minute)
}

// SnapshotTTL returns the parsed snapshot freshness window.
func (c *Config) SnapshotTTL() time.Duration {
	return ParseDuration(c.Daemon.SnapshotTTL, 30*time.Second)
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
