package adb

import (
	"context"
	"time"

	"github.com/webviewer/tvmon/internal/domain"
)

// DeviceLink is the capability surface the monitoring core needs from the
// device transport. The core never shells out itself; every device
// interaction goes through this interface so tests can substitute a fake.
type DeviceLink interface {
	// Connection lifecycle.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) bool
	EnsureConnected(ctx context.Context) error
	ListDevices(ctx context.Context) ([]domain.DeviceInfo, error)
	DeviceInfo(ctx context.Context) (*domain.DeviceInfo, error)

	// Shell commands. RunCommand returns the command's stdout.
	RunCommand(ctx context.Context, command string, timeout time.Duration) (string, error)

	// App lifecycle.
	IsAppInstalled(ctx context.Context) bool
	IsAppRunning(ctx context.Context) bool
	StartApp(ctx context.Context) error
	ForceStopApp(ctx context.Context) error
	ClearAppData(ctx context.Context) error
	InstallAPK(ctx context.Context, path string) error

	// Probes.
	MemoryUsage(ctx context.Context) (*domain.MemoryStats, error)
	ScreenDump(ctx context.Context) (string, error)
	CurrentActivity(ctx context.Context) (string, error)

	// Input.
	SendKeyEvent(ctx context.Context, code int) error
	SendTap(ctx context.Context, x, y int) error

	// LogcatCommand returns the argv for the continuous log stream
	// process the tailer spawns.
	LogcatCommand() []string
}
