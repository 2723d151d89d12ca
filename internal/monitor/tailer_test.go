package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTailerStreamsLines(t *testing.T) {
	argv := []string{"sh", "-c", `printf 'one\ntwo\nthree\n'; sleep 60`}
	tailer := NewTailer(argv, 10, clock.New(), zap.NewNop())

	require.NoError(t, tailer.Start(context.Background()))
	defer tailer.Stop()

	var lines []string
	timeout := time.After(5 * time.Second)
	for len(lines) < 3 {
		select {
		case line := <-tailer.Lines():
			lines = append(lines, line.Line)
		case <-timeout:
			t.Fatalf("timed out, got %v", lines)
		}
	}
	assert.Equal(t, []string{"one", "two", "three"}, lines)
	assert.Len(t, tailer.Buffered(), 3)
}

func TestTailerStop(t *testing.T) {
	tailer := NewTailer([]string{"sleep", "60"}, 10, clock.New(), zap.NewNop())
	require.NoError(t, tailer.Start(context.Background()))

	tailer.Stop()
	assert.False(t, tailer.IsRunning())

	// Channel is closed after Stop; a second Stop is harmless.
	_, ok := <-tailer.Lines()
	assert.False(t, ok)
	tailer.Stop()
}

func TestTailerStartTwice(t *testing.T) {
	tailer := NewTailer([]string{"sleep", "60"}, 10, clock.New(), zap.NewNop())
	require.NoError(t, tailer.Start(context.Background()))
	defer tailer.Stop()

	assert.Error(t, tailer.Start(context.Background()))
}

func TestTailerNoCommand(t *testing.T) {
	tailer := NewTailer(nil, 10, clock.New(), zap.NewNop())
	assert.Error(t, tailer.Start(context.Background()))
}

func TestTailerReconnects(t *testing.T) {
	// The command exits immediately, forcing the backoff/reconnect path.
	tailer := NewTailer([]string{"true"}, 10, clock.New(), zap.NewNop())
	require.NoError(t, tailer.Start(context.Background()))
	defer tailer.Stop()

	assert.Eventually(t, func() bool {
		return tailer.Reconnects() >= 1
	}, 5*time.Second, 10*time.Millisecond)
}
