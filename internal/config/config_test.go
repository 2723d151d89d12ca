package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "192.168.4.94", cfg.DeviceIP)
	assert.Equal(t, 5555, cfg.DevicePort)
	assert.Equal(t, "com.webviewer.firetv", cfg.AppPackage)
	assert.Equal(t, ".MainActivity", cfg.AppActivity)
	assert.Equal(t, 30, cfg.HealthCheckInterval)
	assert.Equal(t, 3600, cfg.MaintenanceInterval)
	assert.Equal(t, 1000, cfg.LogcatBufferSize)
	assert.Equal(t, 60, cfg.FixCooldown)
	assert.Equal(t, 10, cfg.MaxFixAttemptsPerHour)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.EnableAutoFix)
	assert.True(t, cfg.EnableEmergencyRecovery)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "monitor_report.json", cfg.ReportFile)
	assert.True(t, cfg.UIMonitoring.StateAwareChecking)
	assert.False(t, cfg.UIMonitoring.StrictElementChecking)
	assert.Contains(t, cfg.UIMonitoring.IgnoreMissingElementsStates, "loading")
}

func TestDerivedValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "192.168.4.94:5555", cfg.DeviceID())
	assert.Equal(t, 30*time.Second, cfg.HealthInterval())
	assert.Equal(t, time.Hour, cfg.MaintInterval())
	assert.Equal(t, time.Minute, cfg.Cooldown())
}

func TestLoadFromFile(t *testing.T) {
	t.Run("overrides merge over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tvmon.yaml")
		content := `device_ip: 10.0.0.7
health_check_interval: 15
enable_auto_fix: false
ui_monitoring:
  strict_element_checking: true
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, "10.0.0.7", cfg.DeviceIP)
		assert.Equal(t, 15, cfg.HealthCheckInterval)
		assert.False(t, cfg.EnableAutoFix)
		assert.True(t, cfg.UIMonitoring.StrictElementChecking)

		// Untouched keys keep their defaults.
		assert.Equal(t, 5555, cfg.DevicePort)
		assert.Equal(t, "com.webviewer.firetv", cfg.AppPackage)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tvmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_ip: 10.0.0.7\n"), 0o644))

	t.Setenv("TVMON_DEVICE_IP", "10.9.9.9")
	t.Setenv("TVMON_DEVICE_PORT", "5556")
	t.Setenv("TVMON_LOG_LEVEL", "debug")
	t.Setenv("TVMON_AUTO_FIX", "false")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	// Environment wins over the file.
	assert.Equal(t, "10.9.9.9", cfg.DeviceIP)
	assert.Equal(t, 5556, cfg.DevicePort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.EnableAutoFix)
}
