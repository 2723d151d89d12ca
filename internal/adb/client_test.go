package adb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient() *Client {
	return NewClient("192.168.4.94", 5555, "com.webviewer.firetv", ".MainActivity", zap.NewNop())
}

func TestParseDeviceList(t *testing.T) {
	t.Run("parses devices and states", func(t *testing.T) {
		out := "List of devices attached\n" +
			"192.168.4.94:5555\tdevice\n" +
			"emulator-5554\toffline\n"

		devices := parseDeviceList(out)
		require.Len(t, devices, 2)
		assert.Equal(t, "192.168.4.94:5555", devices[0].ID)
		assert.Equal(t, "device", devices[0].State)
		assert.True(t, devices[0].IsOnline())
		assert.Equal(t, "offline", devices[1].State)
		assert.False(t, devices[1].IsOnline())
	})

	t.Run("empty list", func(t *testing.T) {
		devices := parseDeviceList("List of devices attached\n")
		assert.Empty(t, devices)
	})
}

func TestParseMeminfo(t *testing.T) {
	t.Run("old format single TOTAL row", func(t *testing.T) {
		out := `Applications Memory Usage (in Kilobytes):
                   Pss  Private
  Native Heap    60231    60000
  Dalvik Heap    12890    12000
         TOTAL   185735   170000`

		stats := parseMeminfo(out)
		require.NotNil(t, stats)
		assert.Equal(t, 185735, stats.TotalPSSKB)
		assert.Equal(t, 60231, stats.NativeHeapKB)
		assert.Equal(t, 12890, stats.DalvikHeapKB)
	})

	t.Run("new format TOTAL PSS line", func(t *testing.T) {
		out := "  Native Heap    60231  ...\n" +
			"         TOTAL PSS:   185735            TOTAL RSS:   250000      TOTAL SWAP PSS:       0"

		stats := parseMeminfo(out)
		require.NotNil(t, stats)
		assert.Equal(t, 185735, stats.TotalPSSKB)
	})

	t.Run("no counters", func(t *testing.T) {
		assert.Nil(t, parseMeminfo("error: package not found"))
	})
}

func TestParseCurrentActivity(t *testing.T) {
	t.Run("extracts package and activity", func(t *testing.T) {
		out := `  mCurrentFocus=Window{1a2b3c4 u0 com.webviewer.firetv/com.webviewer.firetv.MainActivity}`
		assert.Equal(t, "com.webviewer.firetv/com.webviewer.firetv.MainActivity", parseCurrentActivity(out))
	})

	t.Run("no focus line", func(t *testing.T) {
		assert.Equal(t, "", parseCurrentActivity("mCurrentFocus=null"))
	})
}

func TestClientConnect(t *testing.T) {
	t.Run("accepts connected output", func(t *testing.T) {
		c := newTestClient()
		c.SetRunner(func(_ context.Context, _ time.Duration, args ...string) (string, error) {
			assert.Equal(t, []string{"connect", "192.168.4.94:5555"}, args)
			return "connected to 192.168.4.94:5555\n", nil
		})
		assert.NoError(t, c.Connect(context.Background()))
	})

	t.Run("accepts already connected output", func(t *testing.T) {
		c := newTestClient()
		c.SetRunner(func(_ context.Context, _ time.Duration, _ ...string) (string, error) {
			return "already connected to 192.168.4.94:5555\n", nil
		})
		assert.NoError(t, c.Connect(context.Background()))
	})

	t.Run("rejects failure output", func(t *testing.T) {
		c := newTestClient()
		c.SetRunner(func(_ context.Context, _ time.Duration, _ ...string) (string, error) {
			return "failed to connect to 192.168.4.94:5555\n", nil
		})
		// adb prints "failed to connect" which still contains "connect";
		// the check keys on "connected".
		assert.Error(t, c.Connect(context.Background()))
	})

	t.Run("propagates runner error", func(t *testing.T) {
		c := newTestClient()
		c.SetRunner(func(_ context.Context, _ time.Duration, _ ...string) (string, error) {
			return "", errors.New("no adb binary")
		})
		assert.Error(t, c.Connect(context.Background()))
	})
}

func TestClientAppLifecycle(t *testing.T) {
	t.Run("start app builds full activity name", func(t *testing.T) {
		c := newTestClient()
		var got string
		c.SetRunner(func(_ context.Context, _ time.Duration, args ...string) (string, error) {
			got = strings.Join(args, " ")
			return "Starting: Intent { cmp=com.webviewer.firetv/.MainActivity }", nil
		})
		require.NoError(t, c.StartApp(context.Background()))
		assert.Contains(t, got, "am start -n com.webviewer.firetv/com.webviewer.firetv.MainActivity")
	})

	t.Run("is app running falls back to plain ps", func(t *testing.T) {
		c := newTestClient()
		calls := 0
		c.SetRunner(func(_ context.Context, _ time.Duration, args ...string) (string, error) {
			calls++
			if strings.Contains(strings.Join(args, " "), "ps -A") {
				return "", errors.New("ps: bad -A")
			}
			return "u0_a123 4711 ... com.webviewer.firetv", nil
		})
		assert.True(t, c.IsAppRunning(context.Background()))
		assert.Equal(t, 2, calls)
	})

	t.Run("clear app data requires Success", func(t *testing.T) {
		c := newTestClient()
		c.SetRunner(func(_ context.Context, _ time.Duration, _ ...string) (string, error) {
			return "Failed\n", nil
		})
		assert.Error(t, c.ClearAppData(context.Background()))
	})
}

func TestClientIsConnected(t *testing.T) {
	c := newTestClient()
	c.SetRunner(func(_ context.Context, _ time.Duration, args ...string) (string, error) {
		require.Equal(t, "devices", args[0])
		return "List of devices attached\n192.168.4.94:5555\tdevice\n", nil
	})
	assert.True(t, c.IsConnected(context.Background()))

	c.SetRunner(func(_ context.Context, _ time.Duration, _ ...string) (string, error) {
		return "List of devices attached\n192.168.4.94:5555\toffline\n", nil
	})
	assert.False(t, c.IsConnected(context.Background()))
}

func TestClientDeviceInfo(t *testing.T) {
	c := newTestClient()
	c.SetRunner(func(_ context.Context, _ time.Duration, args ...string) (string, error) {
		cmd := strings.Join(args, " ")
		switch {
		case strings.Contains(cmd, "ro.product.model"):
			return "AFTKA\n", nil
		case strings.Contains(cmd, "version.release"):
			return "9\n", nil
		case strings.Contains(cmd, "version.sdk"):
			return "28\n", nil
		}
		return "", fmt.Errorf("unexpected command %q", cmd)
	})

	info, err := c.DeviceInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AFTKA", info.Model)
	assert.Equal(t, "9", info.AndroidVersion)
	assert.Equal(t, 28, info.APILevel)
}

func TestLogcatCommand(t *testing.T) {
	c := newTestClient()
	assert.Equal(t, []string{"adb", "-s", "192.168.4.94:5555", "logcat"}, c.LogcatCommand())
}
