package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full monitoring configuration. Keys are flat with
// explicit defaults; unknown keys in the file are ignored, missing keys
// fall back to defaults.
type Config struct {
	// Device transport
	DeviceIP    string `mapstructure:"device_ip"`
	DevicePort  int    `mapstructure:"device_port"`
	AppPackage  string `mapstructure:"app_package"`
	AppActivity string `mapstructure:"app_activity"`

	// Loop intervals (seconds)
	HealthCheckInterval int `mapstructure:"health_check_interval"`
	MaintenanceInterval int `mapstructure:"maintenance_interval"`

	// Caps and limits
	LogcatBufferSize      int `mapstructure:"logcat_buffer_size"`
	FixCooldown           int `mapstructure:"fix_cooldown"`
	MaxFixAttemptsPerHour int `mapstructure:"max_fix_attempts_per_hour"`
	Workers               int `mapstructure:"workers"`

	// Feature toggles
	EnableAutoFix           bool `mapstructure:"enable_auto_fix"`
	EnableEmergencyRecovery bool `mapstructure:"enable_emergency_recovery"`

	// Logging and output files
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days"`
	LogCompress   bool   `mapstructure:"log_compress"`
	ReportFile    string `mapstructure:"report_file"`

	// UI monitoring behavior
	UIMonitoring UIMonitoringConfig `mapstructure:"ui_monitoring"`
}

// UIMonitoringConfig controls the state-aware UI checks.
type UIMonitoringConfig struct {
	StateAwareChecking          bool                `mapstructure:"state_aware_checking"`
	ExpectedElementsByState     map[string][]string `mapstructure:"expected_elements_by_state"`
	IgnoreMissingElementsStates []string            `mapstructure:"ignore_missing_elements_in_states"`
	StrictElementChecking       bool                `mapstructure:"strict_element_checking"`
	FocusMonitoring             FocusConfig         `mapstructure:"focus_monitoring"`
}

// FocusConfig controls the no-focused-element check.
type FocusConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	IgnoreInStates []string `mapstructure:"ignore_in_states"`
}

// Default returns a Config with default values for every key.
func Default() *Config {
	return &Config{
		DeviceIP:    "192.168.4.94",
		DevicePort:  5555,
		AppPackage:  "com.webviewer.firetv",
		AppActivity: ".MainActivity",

		HealthCheckInterval: 30,
		MaintenanceInterval: 3600,

		LogcatBufferSize:      1000,
		FixCooldown:           60,
		MaxFixAttemptsPerHour: 10,
		Workers:               3,

		EnableAutoFix:           true,
		EnableEmergencyRecovery: true,

		LogLevel:      "info",
		LogFile:       "monitor.log",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
		LogMaxAgeDays: 14,
		ReportFile:    "monitor_report.json",

		UIMonitoring: UIMonitoringConfig{
			StateAwareChecking: true,
			ExpectedElementsByState: map[string][]string{
				"browsing": {"profilesButton", "webView", "browserToolbar"},
				"settings": {"settingsContainer"},
			},
			IgnoreMissingElementsStates: []string{"loading", "error_welcome"},
			FocusMonitoring: FocusConfig{
				Enabled:        true,
				IgnoreInStates: []string{"loading"},
			},
		},
	}
}

// HealthInterval returns the health check interval as a duration.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthCheckInterval) * time.Second
}

// MaintInterval returns the maintenance interval as a duration.
func (c *Config) MaintInterval() time.Duration {
	return time.Duration(c.MaintenanceInterval) * time.Second
}

// Cooldown returns the per-kind fix cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.FixCooldown) * time.Second
}

// DeviceID returns the adb serial for the configured device.
func (c *Config) DeviceID() string {
	return c.DeviceIP + ":" + strconv.Itoa(c.DevicePort)
}

// Load loads configuration from files and environment.
// Config file search order (highest precedence first):
// 1. ./.tvmon.yaml or ./.tvmon.yml
// 2. ~/.tvmon.yaml or ~/.tvmon.yml
// 3. $XDG_CONFIG_HOME/tvmon/config.yaml (or ~/.config/tvmon/config.yaml)
// 4. /etc/tvmon/config.yaml
func Load() (*Config, error) {
	configFile := findConfigFile()
	if configFile == "" {
		cfg := Default()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return LoadFromFile(configFile)
}

// LoadFromFile loads configuration from a specific file, merged over
// defaults.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// ConfigFile returns the path to the config file that would be loaded.
func ConfigFile() string {
	return findConfigFile()
}

// findConfigFile searches for a config file in standard locations.
func findConfigFile() string {
	names := []string{".tvmon.yaml", ".tvmon.yml", "tvmon.yaml", "tvmon.yml"}

	home, homeErr := os.UserHomeDir()
	configDir, configDirErr := os.UserConfigDir()

	var searchPaths []string
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}
	if homeErr == nil {
		searchPaths = append(searchPaths, home)
	}
	if configDirErr == nil {
		searchPaths = append(searchPaths, filepath.Join(configDir, "tvmon"))
	}
	searchPaths = append(searchPaths, "/etc/tvmon")

	for _, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvOverrides applies TVMON_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TVMON_DEVICE_IP"); v != "" {
		cfg.DeviceIP = v
	}
	if v := os.Getenv("TVMON_DEVICE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.DevicePort = port
		}
	}
	if v := os.Getenv("TVMON_APP_PACKAGE"); v != "" {
		cfg.AppPackage = v
	}
	if v := os.Getenv("TVMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TVMON_REPORT_FILE"); v != "" {
		cfg.ReportFile = v
	}
	if v := os.Getenv("TVMON_AUTO_FIX"); v == "false" || v == "0" {
		cfg.EnableAutoFix = false
	}
}
