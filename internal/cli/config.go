package cli

import (
	"encoding/json"
	"fmt"

	"github.com/webviewer/tvmon/internal/config"
)

// ConfigCmd shows or manages configuration.
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"withargs" help:"Show current configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show configuration file path"`
	Generate ConfigGenerateCmd `cmd:"" help:"Generate a sample configuration file"`
}

// ConfigShowCmd shows current configuration.
type ConfigShowCmd struct{}

// Run executes the config show command.
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "json" {
		return json.NewEncoder(globals.Stdout).Encode(cfg)
	}

	out := globals.Stdout
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "  device:       %s\n", cfg.DeviceID())
	fmt.Fprintf(out, "  app_package:  %s\n", cfg.AppPackage)
	fmt.Fprintf(out, "  app_activity: %s\n", cfg.AppActivity)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Loop intervals:")
	fmt.Fprintf(out, "  health_check_interval: %ds\n", cfg.HealthCheckInterval)
	fmt.Fprintf(out, "  maintenance_interval:  %ds\n", cfg.MaintenanceInterval)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Remediation:")
	fmt.Fprintf(out, "  enable_auto_fix:           %v\n", cfg.EnableAutoFix)
	fmt.Fprintf(out, "  enable_emergency_recovery: %v\n", cfg.EnableEmergencyRecovery)
	fmt.Fprintf(out, "  fix_cooldown:              %ds\n", cfg.FixCooldown)
	fmt.Fprintf(out, "  max_fix_attempts_per_hour: %d\n", cfg.MaxFixAttemptsPerHour)
	fmt.Fprintf(out, "  workers:                   %d\n", cfg.Workers)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Output:")
	fmt.Fprintf(out, "  log_level:   %s\n", cfg.LogLevel)
	fmt.Fprintf(out, "  log_file:    %s\n", cfg.LogFile)
	fmt.Fprintf(out, "  report_file: %s\n", cfg.ReportFile)

	if path := config.ConfigFile(); path != "" {
		fmt.Fprintln(out, "")
		fmt.Fprintf(out, "Loaded from: %s\n", path)
	}

	return nil
}

// ConfigPathCmd shows config file path.
type ConfigPathCmd struct{}

// Run executes the config path command.
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()

	if globals.Format == "json" {
		return json.NewEncoder(globals.Stdout).Encode(map[string]string{
			"type": "config_path",
			"path": path,
		})
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintln(globals.Stdout, "Create one at:")
		fmt.Fprintln(globals.Stdout, "  ./.tvmon.yaml")
		fmt.Fprintln(globals.Stdout, "  ~/.tvmon.yaml")
		fmt.Fprintln(globals.Stdout, "  ~/.config/tvmon/config.yaml")
	} else {
		fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	}

	return nil
}

// ConfigGenerateCmd generates a sample configuration file.
type ConfigGenerateCmd struct{}

// Run executes the config generate command.
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	sampleConfig := `# tvmon configuration file
# Place this file at ./.tvmon.yaml, ~/.tvmon.yaml, or ~/.config/tvmon/config.yaml

# Device transport
device_ip: 192.168.4.94
device_port: 5555
app_package: com.webviewer.firetv
app_activity: .MainActivity

# Loop intervals (seconds)
health_check_interval: 30
maintenance_interval: 3600

# Remediation policy
enable_auto_fix: true
enable_emergency_recovery: true
fix_cooldown: 60
max_fix_attempts_per_hour: 10
workers: 3

# Caps
logcat_buffer_size: 1000

# Logging and output
log_level: info
log_file: monitor.log
log_max_size_mb: 50
log_max_backups: 3
log_max_age_days: 14
report_file: monitor_report.json

# UI monitoring behavior
ui_monitoring:
  state_aware_checking: true
  strict_element_checking: false
  expected_elements_by_state:
    browsing: [profilesButton, webView, browserToolbar]
    settings: [settingsContainer]
  ignore_missing_elements_in_states: [loading, error_welcome]
  focus_monitoring:
    enabled: true
    ignore_in_states: [loading]
`
	fmt.Fprint(globals.Stdout, sampleConfig)
	return nil
}
