package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/webviewer/tvmon/internal/config"
	"github.com/webviewer/tvmon/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const healthyDump = `<node resource-id="webViewCard">
  <node resource-id="profilesButton" focused="true"/>
  <node resource-id="webView"/>
  <node resource-id="browserToolbar"/>
</node>`

// crashLogcat emits one crash line and then stays quiet.
var crashLogcat = []string{"sh", "-c",
	`printf 'E/AndroidRuntime: FATAL EXCEPTION: main Process: com.webviewer.firetv\n'; sleep 60`}

// silentLogcat emits nothing.
var silentLogcat = []string{"sleep", "60"}

// fakeDevice is a scriptable DeviceLink for orchestrator tests.
type fakeDevice struct {
	mu sync.Mutex

	running    bool
	activity   string
	dump       string
	memKB      int
	connectErr error
	logcat     []string

	starts      int
	disconnects int
}

func (f *fakeDevice) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}
func (f *fakeDevice) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}
func (f *fakeDevice) IsConnected(context.Context) bool      { return true }
func (f *fakeDevice) EnsureConnected(context.Context) error { return nil }
func (f *fakeDevice) ListDevices(context.Context) ([]domain.DeviceInfo, error) {
	return []domain.DeviceInfo{{ID: "192.168.4.94:5555", State: "device"}}, nil
}
func (f *fakeDevice) DeviceInfo(context.Context) (*domain.DeviceInfo, error) {
	return &domain.DeviceInfo{ID: "192.168.4.94:5555", State: "device", Model: "AFTKA"}, nil
}
func (f *fakeDevice) RunCommand(context.Context, string, time.Duration) (string, error) {
	return "", nil
}
func (f *fakeDevice) IsAppInstalled(context.Context) bool { return true }
func (f *fakeDevice) IsAppRunning(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}
func (f *fakeDevice) StartApp(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.running = true
	return nil
}
func (f *fakeDevice) ForceStopApp(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return nil
}
func (f *fakeDevice) ClearAppData(context.Context) error       { return nil }
func (f *fakeDevice) InstallAPK(context.Context, string) error { return nil }
func (f *fakeDevice) MemoryUsage(context.Context) (*domain.MemoryStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.MemoryStats{TotalPSSKB: f.memKB}, nil
}
func (f *fakeDevice) ScreenDump(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dump, nil
}
func (f *fakeDevice) CurrentActivity(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activity, nil
}
func (f *fakeDevice) SendKeyEvent(context.Context, int) error { return nil }
func (f *fakeDevice) SendTap(context.Context, int, int) error { return nil }
func (f *fakeDevice) LogcatCommand() []string                 { return f.logcat }

func (f *fakeDevice) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func healthyDevice(logcat []string) *fakeDevice {
	return &fakeDevice{
		running:  true,
		activity: "com.webviewer.firetv/com.webviewer.firetv.MainActivity",
		dump:     healthyDump,
		memKB:    100000,
		logcat:   logcat,
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LogFile = ""
	cfg.ReportFile = filepath.Join(t.TempDir(), "report.json")
	cfg.LogcatBufferSize = 10
	cfg.Workers = 2
	return cfg
}

// pumpClock advances the mock clock continuously so strategy pauses and
// loop tickers resolve in test time. Returns a stop function.
func pumpClock(mock *clock.Mock) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				mock.Add(time.Second)
			}
		}
	}()
	return func() {
		close(stop)
		<-done
	}
}

func startMonitor(t *testing.T, cfg *config.Config, dev *fakeDevice) (*Monitor, chan error) {
	t.Helper()
	mon := New(cfg, dev, clockForTest(t), zap.NewNop())
	runDone := make(chan error, 1)
	go func() {
		runDone <- mon.Run(context.Background())
	}()
	return mon, runDone
}

func clockForTest(t *testing.T) *clock.Mock {
	mock := clock.NewMock()
	t.Cleanup(pumpClock(mock))
	return mock
}

func waitForRun(t *testing.T, runDone chan error) error {
	t.Helper()
	select {
	case err := <-runDone:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("monitor did not stop in time")
		return nil
	}
}

func TestMonitorDetectsAndFixesCrash(t *testing.T) {
	cfg := testConfig(t)
	dev := healthyDevice(crashLogcat)
	mon, runDone := startMonitor(t, cfg, dev)

	require.Eventually(t, func() bool {
		stats := mon.Status()
		return stats.ErrorsDetected >= 1 && stats.SuccessfulFixes >= 1
	}, 10*time.Second, 10*time.Millisecond)

	mon.Stop()
	require.NoError(t, waitForRun(t, runDone))

	stats := mon.Status()
	assert.Equal(t, domain.StatusStopped, stats.CurrentStatus)
	assert.GreaterOrEqual(t, stats.FixesAttempted, 1)
	assert.GreaterOrEqual(t, dev.startCount(), 1)

	// Final report written atomically on shutdown.
	data, err := os.ReadFile(cfg.ReportFile)
	require.NoError(t, err)
	var report domain.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, stats.ErrorsDetected, report.Statistics.ErrorsDetected)
	assert.Equal(t, "AFTKA", report.DeviceInfo.Model)
}

func TestMonitorAutoFixDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableAutoFix = false
	dev := healthyDevice(crashLogcat)
	mon, runDone := startMonitor(t, cfg, dev)

	require.Eventually(t, func() bool {
		return mon.Status().ErrorsDetected >= 1
	}, 10*time.Second, 10*time.Millisecond)

	mon.Stop()
	require.NoError(t, waitForRun(t, runDone))

	stats := mon.Status()
	assert.Equal(t, 0, stats.FixesAttempted)
	assert.Equal(t, 0, dev.startCount())
}

func TestMonitorRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFixAttemptsPerHour = 1

	// Two escalation-eligible errors of different kinds, so the per-kind
	// cooldown cannot mask the global ceiling.
	dev := healthyDevice([]string{"sh", "-c",
		`printf 'E/AndroidRuntime: FATAL EXCEPTION: main Process: com.webviewer.firetv\n'; ` +
			`printf 'E/ActivityManager: ANR in com.webviewer.firetv\n'; sleep 60`})
	mon, runDone := startMonitor(t, cfg, dev)

	require.Eventually(t, func() bool {
		return mon.Status().ErrorsDetected >= 2
	}, 10*time.Second, 10*time.Millisecond)

	mon.Stop()
	require.NoError(t, waitForRun(t, runDone))
	assert.Equal(t, 1, mon.Status().FixesAttempted)
}

func TestMonitorHealthCheckRestartsApp(t *testing.T) {
	cfg := testConfig(t)
	dev := healthyDevice(silentLogcat)
	dev.running = false
	mon, runDone := startMonitor(t, cfg, dev)

	// The health cycle flags app_not_running (high severity, escalates
	// immediately) and the fix starts the app.
	require.Eventually(t, func() bool {
		return dev.startCount() >= 1 && mon.Status().SuccessfulFixes >= 1
	}, 10*time.Second, 10*time.Millisecond)

	mon.Stop()
	require.NoError(t, waitForRun(t, runDone))
}

func TestMonitorConnectFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	dev := healthyDevice(silentLogcat)
	dev.connectErr = context.DeadlineExceeded
	mon, runDone := startMonitor(t, cfg, dev)

	err := waitForRun(t, runDone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to device")

	// Even a failed start runs the full shutdown path.
	stats := mon.Status()
	assert.Equal(t, domain.StatusStopped, stats.CurrentStatus)
	_, statErr := os.Stat(cfg.ReportFile)
	assert.NoError(t, statErr)
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	dev := healthyDevice(silentLogcat)
	mon, runDone := startMonitor(t, cfg, dev)

	require.Eventually(t, func() bool {
		return mon.Status().CurrentStatus == domain.StatusMonitoring
	}, 10*time.Second, 10*time.Millisecond)

	mon.Stop()
	mon.Stop()
	require.NoError(t, waitForRun(t, runDone))
	mon.Stop()
	assert.Equal(t, domain.StatusStopped, mon.Status().CurrentStatus)
}
