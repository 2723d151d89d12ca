package adb

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webviewer/tvmon/internal/domain"
)

// Runner executes an adb invocation and returns its stdout. Injectable so
// tests never spawn real processes.
type Runner func(ctx context.Context, timeout time.Duration, args ...string) (string, error)

// Client is the ADB implementation of DeviceLink. It shells out to the
// adb binary for every call; each call carries its own timeout.
type Client struct {
	deviceID    string
	appPackage  string
	appActivity string
	adbPath     string
	run         Runner
	log         *zap.Logger
}

const (
	connectTimeout = 10 * time.Second
	listTimeout    = 5 * time.Second
	shellTimeout   = 30 * time.Second
	installTimeout = 60 * time.Second
)

// NewClient creates an ADB client for a networked device.
func NewClient(deviceIP string, devicePort int, appPackage, appActivity string, log *zap.Logger) *Client {
	c := &Client{
		deviceID:    fmt.Sprintf("%s:%d", deviceIP, devicePort),
		appPackage:  appPackage,
		appActivity: appActivity,
		adbPath:     "adb",
		log:         log,
	}
	c.run = c.execRun
	return c
}

// SetRunner replaces the command runner. Test hook.
func (c *Client) SetRunner(r Runner) { c.run = r }

// DeviceID returns the adb serial this client targets.
func (c *Client) DeviceID() string { return c.deviceID }

func (c *Client) execRun(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.adbPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("adb %s: timeout after %s", args[0], timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("adb %s: %s", args[0], msg)
	}
	return string(out), nil
}

// Connect establishes the TCP connection to the device.
func (c *Client) Connect(ctx context.Context) error {
	out, err := c.run(ctx, connectTimeout, "connect", c.deviceID)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.deviceID, err)
	}
	lower := strings.ToLower(out)
	if strings.Contains(lower, "connected") {
		c.log.Info("connected to device", zap.String("device", c.deviceID))
		return nil
	}
	return fmt.Errorf("connect %s: %s", c.deviceID, strings.TrimSpace(out))
}

// Disconnect drops the TCP connection.
func (c *Client) Disconnect(ctx context.Context) error {
	_, err := c.run(ctx, listTimeout, "disconnect", c.deviceID)
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", c.deviceID, err)
	}
	c.log.Info("disconnected from device", zap.String("device", c.deviceID))
	return nil
}

// IsConnected reports whether the device shows up as online.
func (c *Client) IsConnected(ctx context.Context) bool {
	devices, err := c.ListDevices(ctx)
	if err != nil {
		return false
	}
	for _, d := range devices {
		if d.ID == c.deviceID && d.IsOnline() {
			return true
		}
	}
	return false
}

// EnsureConnected reconnects if the device dropped off.
func (c *Client) EnsureConnected(ctx context.Context) error {
	if c.IsConnected(ctx) {
		return nil
	}
	c.log.Warn("device not connected, attempting reconnection", zap.String("device", c.deviceID))
	return c.Connect(ctx)
}

// ListDevices parses `adb devices` output.
func (c *Client) ListDevices(ctx context.Context) ([]domain.DeviceInfo, error) {
	out, err := c.run(ctx, listTimeout, "devices")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return parseDeviceList(out), nil
}

func parseDeviceList(out string) []domain.DeviceInfo {
	var devices []domain.DeviceInfo
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i, line := range lines {
		if i == 0 && strings.Contains(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, domain.DeviceInfo{ID: fields[0], State: fields[1]})
	}
	return devices
}

// DeviceInfo fetches model and OS properties for the target device.
func (c *Client) DeviceInfo(ctx context.Context) (*domain.DeviceInfo, error) {
	model, err := c.RunCommand(ctx, "getprop ro.product.model", listTimeout)
	if err != nil {
		return nil, err
	}
	version, _ := c.RunCommand(ctx, "getprop ro.build.version.release", listTimeout)
	sdk, _ := c.RunCommand(ctx, "getprop ro.build.version.sdk", listTimeout)

	info := &domain.DeviceInfo{
		ID:             c.deviceID,
		State:          "device",
		Model:          strings.TrimSpace(model),
		AndroidVersion: strings.TrimSpace(version),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(sdk)); err == nil {
		info.APILevel = n
	}
	return info, nil
}

// RunCommand executes a shell command on the device.
func (c *Client) RunCommand(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = shellTimeout
	}
	out, err := c.run(ctx, timeout, "-s", c.deviceID, "shell", command)
	if err != nil {
		return "", fmt.Errorf("shell %q: %w", command, err)
	}
	return out, nil
}

// IsAppInstalled checks the package list for the monitored app.
func (c *Client) IsAppInstalled(ctx context.Context) bool {
	out, err := c.RunCommand(ctx, "pm list packages "+c.appPackage, shellTimeout)
	return err == nil && strings.Contains(out, c.appPackage)
}

// IsAppRunning checks the process list for the monitored app.
func (c *Client) IsAppRunning(ctx context.Context) bool {
	out, err := c.RunCommand(ctx, "ps -A", shellTimeout)
	if err != nil {
		// Older devices reject -A.
		out, err = c.RunCommand(ctx, "ps", shellTimeout)
	}
	return err == nil && strings.Contains(out, c.appPackage)
}

// StartApp launches the main activity.
func (c *Client) StartApp(ctx context.Context) error {
	activity := c.appActivity
	if strings.HasPrefix(activity, ".") {
		activity = c.appPackage + activity
	}
	out, err := c.RunCommand(ctx, fmt.Sprintf("am start -n %s/%s", c.appPackage, activity), shellTimeout)
	if err != nil {
		return err
	}
	if !strings.Contains(out, "Starting") {
		return fmt.Errorf("start app: unexpected output: %s", strings.TrimSpace(out))
	}
	return nil
}

// ForceStopApp kills the app process.
func (c *Client) ForceStopApp(ctx context.Context) error {
	_, err := c.RunCommand(ctx, "am force-stop "+c.appPackage, shellTimeout)
	return err
}

// ClearAppData wipes all app data, including user profiles.
func (c *Client) ClearAppData(ctx context.Context) error {
	out, err := c.RunCommand(ctx, "pm clear "+c.appPackage, shellTimeout)
	if err != nil {
		return err
	}
	if !strings.Contains(out, "Success") {
		return fmt.Errorf("clear app data: %s", strings.TrimSpace(out))
	}
	return nil
}

// InstallAPK sideloads an APK onto the device.
func (c *Client) InstallAPK(ctx context.Context, path string) error {
	out, err := c.run(ctx, installTimeout, "-s", c.deviceID, "install", "-r", path)
	if err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	if !strings.Contains(out, "Success") {
		return fmt.Errorf("install %s: %s", path, strings.TrimSpace(out))
	}
	return nil
}

// MemoryUsage parses `dumpsys meminfo` for the app's memory counters.
func (c *Client) MemoryUsage(ctx context.Context) (*domain.MemoryStats, error) {
	out, err := c.RunCommand(ctx, "dumpsys meminfo "+c.appPackage, shellTimeout)
	if err != nil {
		return nil, err
	}
	stats := parseMeminfo(out)
	if stats == nil {
		return nil, fmt.Errorf("meminfo: no counters found for %s", c.appPackage)
	}
	return stats, nil
}

// parseMeminfo pulls the PSS counters out of `dumpsys meminfo` output.
// The first numeric token on each matched row is the PSS total column,
// in both the old single-TOTAL and the newer "TOTAL PSS:" formats.
func parseMeminfo(out string) *domain.MemoryStats {
	var stats domain.MemoryStats
	found := false
	for _, line := range strings.Split(out, "\n") {
		switch {
		case stats.TotalPSSKB == 0 && strings.Contains(line, "TOTAL"):
			if n, ok := firstInt(line); ok {
				stats.TotalPSSKB = n
				found = true
			}
		case stats.NativeHeapKB == 0 && strings.Contains(line, "Native Heap"):
			if n, ok := firstInt(line); ok {
				stats.NativeHeapKB = n
				found = true
			}
		case stats.DalvikHeapKB == 0 && strings.Contains(line, "Dalvik Heap"):
			if n, ok := firstInt(line); ok {
				stats.DalvikHeapKB = n
				found = true
			}
		}
	}
	if !found {
		return nil
	}
	return &stats
}

func firstInt(line string) (int, bool) {
	for _, f := range strings.Fields(line) {
		if n, err := strconv.Atoi(f); err == nil {
			return n, true
		}
	}
	return 0, false
}

// ScreenDump returns the UI hierarchy as XML text.
func (c *Client) ScreenDump(ctx context.Context) (string, error) {
	return c.RunCommand(ctx, "uiautomator dump /dev/stdout", shellTimeout)
}

var currentFocusRe = regexp.MustCompile(`mCurrentFocus=.*\{.*\s(\S+)/(\S+)[\s}]`)

// CurrentActivity returns the focused activity as "package/activity".
func (c *Client) CurrentActivity(ctx context.Context) (string, error) {
	out, err := c.RunCommand(ctx, "dumpsys window windows | grep mCurrentFocus", shellTimeout)
	if err != nil {
		return "", err
	}
	return parseCurrentActivity(out), nil
}

func parseCurrentActivity(out string) string {
	m := currentFocusRe.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return m[1] + "/" + m[2]
}

// SendKeyEvent injects a key press.
func (c *Client) SendKeyEvent(ctx context.Context, code int) error {
	_, err := c.RunCommand(ctx, fmt.Sprintf("input keyevent %d", code), shellTimeout)
	return err
}

// SendTap injects a tap at screen coordinates.
func (c *Client) SendTap(ctx context.Context, x, y int) error {
	_, err := c.RunCommand(ctx, fmt.Sprintf("input tap %d %d", x, y), shellTimeout)
	return err
}

// LogcatCommand returns the argv the tailer spawns for the continuous
// log stream.
func (c *Client) LogcatCommand() []string {
	return []string{c.adbPath, "-s", c.deviceID, "logcat"}
}
