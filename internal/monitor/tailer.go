package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Tailer owns the continuous logcat process: it spawns the command, feeds
// each line into a ring buffer and a channel, and reconnects with jittered
// exponential backoff when the process dies. Tailer failures are reported,
// never fatal; the device transport may come back on its own.
type Tailer struct {
	argv []string
	clk  clock.Clock
	log  *zap.Logger
	rng  *rand.Rand

	mu         sync.RWMutex
	cmd        *exec.Cmd
	lines      chan LogLine
	running    bool
	cancelFunc context.CancelFunc
	buffer     *RingBuffer
	wg         sync.WaitGroup
	closeOnce  sync.Once

	chanDropped int
	reconnects  int
}

// NewTailer creates a tailer for the given command argv. bufferSize caps
// the retained recent-line window.
func NewTailer(argv []string, bufferSize int, clk clock.Clock, log *zap.Logger) *Tailer {
	return &Tailer{
		argv:   argv,
		clk:    clk,
		log:    log,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		lines:  make(chan LogLine, 1000),
		buffer: NewRingBuffer(bufferSize),
	}
}

// Start begins tailing in the background.
func (t *Tailer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("tailer already running")
	}
	if len(t.argv) == 0 {
		return fmt.Errorf("tailer has no command")
	}

	tailCtx, cancel := context.WithCancel(ctx)
	t.cancelFunc = cancel
	t.running = true

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.tailLoop(tailCtx)
	}()

	return nil
}

// tailLoop restarts the logcat process until the context is cancelled.
func (t *Tailer) tailLoop(ctx context.Context) {
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		started := t.clk.Now()
		err := t.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			t.log.Warn("log stream ended", zap.Error(err))
		}

		// A stream that survived for a while earns a fresh backoff.
		if t.clk.Now().Sub(started) > time.Minute {
			backoff = time.Second
		}

		t.mu.Lock()
		t.reconnects++
		t.mu.Unlock()
		t.log.Info("reconnecting log stream", zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return
		case <-t.clk.After(t.jitter(backoff)):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// runOnce spawns one logcat process and pumps its output until it exits.
func (t *Tailer) runOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.argv[0], t.argv[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout // logcat errors arrive as lines too

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start logcat: %w", err)
	}

	t.mu.Lock()
	t.cmd = cmd
	t.mu.Unlock()

	scanner := bufio.NewScanner(stdout)
	const maxLineBytes = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

Loop:
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if text == "" {
			continue
		}

		line := LogLine{Timestamp: t.clk.Now(), Line: text}
		t.buffer.Push(line)

		select {
		case t.lines <- line:
		case <-ctx.Done():
			break Loop
		default:
			// Consumer is behind; drop rather than stall the stream.
			t.mu.Lock()
			t.chanDropped++
			t.mu.Unlock()
		}
	}

	scanErr := scanner.Err()
	if scanErr != nil && errors.Is(scanErr, bufio.ErrTooLong) {
		scanErr = fmt.Errorf("logcat line too long (>%d bytes): %w", maxLineBytes, scanErr)
	}
	if scanErr != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	waitErr := cmd.Wait()

	if scanErr != nil {
		return scanErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return waitErr
}

func (t *Tailer) jitter(d time.Duration) time.Duration {
	// random between 0.5x and 1.5x
	factor := 0.5 + t.rng.Float64()
	return time.Duration(float64(d) * factor)
}

// Stop kills the process and waits for the tail loop to exit. Idempotent.
func (t *Tailer) Stop() {
	t.mu.Lock()
	cancel := t.cancelFunc
	cmd := t.cmd
	t.running = false
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	t.wg.Wait()

	t.closeOnce.Do(func() {
		close(t.lines)
	})
}

// Lines returns the channel of raw log lines.
func (t *Tailer) Lines() <-chan LogLine {
	return t.lines
}

// Buffered returns the retained recent lines, oldest first.
func (t *Tailer) Buffered() []LogLine {
	return t.buffer.GetAll()
}

// IsRunning reports whether the tail loop is active.
func (t *Tailer) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// Dropped returns the number of lines dropped because the consumer was
// behind.
func (t *Tailer) Dropped() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chanDropped
}

// Reconnects returns the number of times the stream was restarted.
func (t *Tailer) Reconnects() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reconnects
}
