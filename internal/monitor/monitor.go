package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/webviewer/tvmon/internal/adb"
	"github.com/webviewer/tvmon/internal/config"
	"github.com/webviewer/tvmon/internal/detect"
	"github.com/webviewer/tvmon/internal/domain"
	"github.com/webviewer/tvmon/internal/remedy"
)

// Monitor is the orchestrator: it owns the detector and remediator state,
// runs the log, health, and maintenance loops, and is the only goroutine
// that mutates shared histories and statistics. Blocking device calls are
// offloaded to a bounded worker pool; the run loop waits for each result
// before touching state again.
type Monitor struct {
	cfg  *config.Config
	dev  adb.DeviceLink
	det  *detect.Detector
	rem  *remedy.Remediator
	pool *Pool
	clk  clock.Clock
	log  *zap.Logger

	tailer *Tailer

	mu         sync.RWMutex
	stats      domain.MonitoringStats
	deviceInfo *domain.DeviceInfo

	stopCh   chan struct{}
	stopOnce sync.Once
}

// statusRank orders lifecycle states so transitions only move forward.
var statusRank = map[domain.Status]int{
	domain.StatusInitializing: 0,
	domain.StatusStarting:     1,
	domain.StatusMonitoring:   2,
	domain.StatusStopping:     3,
	domain.StatusStopped:      4,
}

// New builds a monitor over the given device link.
func New(cfg *config.Config, dev adb.DeviceLink, clk clock.Clock, log *zap.Logger) *Monitor {
	det := detect.NewDetector(cfg.AppPackage, uiConfigFrom(cfg), clk, log.Named("detect"))
	rem := remedy.NewRemediator(dev, cfg.Cooldown(), clk, log.Named("remedy"))
	pool := NewPool(cfg.Workers)
	rem.SetExecutor(pool.Do)

	return &Monitor{
		cfg:  cfg,
		dev:  dev,
		det:  det,
		rem:  rem,
		pool: pool,
		clk:  clk,
		log:  log,
		stats: domain.MonitoringStats{
			StartTime:     clk.Now(),
			CurrentStatus: domain.StatusInitializing,
		},
		stopCh: make(chan struct{}),
	}
}

// uiConfigFrom translates the file configuration into detector knobs.
func uiConfigFrom(cfg *config.Config) detect.UIConfig {
	ui := detect.DefaultUIConfig()
	ui.StateAwareChecking = cfg.UIMonitoring.StateAwareChecking
	ui.StrictChecking = cfg.UIMonitoring.StrictElementChecking
	if len(cfg.UIMonitoring.ExpectedElementsByState) > 0 {
		ui.ExpectedByState = cfg.UIMonitoring.ExpectedElementsByState
	}
	if len(cfg.UIMonitoring.IgnoreMissingElementsStates) > 0 {
		ui.IgnoreMissingIn = cfg.UIMonitoring.IgnoreMissingElementsStates
	}
	ui.FocusEnabled = cfg.UIMonitoring.FocusMonitoring.Enabled
	if len(cfg.UIMonitoring.FocusMonitoring.IgnoreInStates) > 0 {
		ui.FocusIgnoreIn = cfg.UIMonitoring.FocusMonitoring.IgnoreInStates
	}
	return ui
}

// Run starts monitoring and blocks until the context is cancelled or Stop
// is called. The only fatal startup condition is an unreachable device;
// everything after that is degraded operation, not shutdown.
func (m *Monitor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	m.setStatus(domain.StatusStarting)
	m.log.Info("starting monitoring",
		zap.String("device", m.cfg.DeviceID()),
		zap.String("package", m.cfg.AppPackage),
	)

	if err := m.initDevice(ctx); err != nil {
		m.shutdown()
		return err
	}

	m.tailer = NewTailer(m.dev.LogcatCommand(), m.cfg.LogcatBufferSize, m.clk, m.log.Named("tailer"))
	if err := m.tailer.Start(ctx); err != nil {
		m.shutdown()
		return fmt.Errorf("start log tailer: %w", err)
	}

	m.setStatus(domain.StatusMonitoring)
	m.log.Info("monitoring active")

	m.runLoop(ctx)
	m.shutdown()
	return nil
}

// initDevice connects, verifies the app is present, and captures device
// identity for reports.
func (m *Monitor) initDevice(ctx context.Context) error {
	var connectErr error
	if err := m.pool.Do(ctx, func() {
		connectErr = m.dev.Connect(ctx)
	}); err != nil {
		return err
	}
	if connectErr != nil {
		return fmt.Errorf("connect to device: %w", connectErr)
	}

	var (
		info      *domain.DeviceInfo
		installed bool
	)
	if err := m.pool.Do(ctx, func() {
		info, _ = m.dev.DeviceInfo(ctx)
		installed = m.dev.IsAppInstalled(ctx)
	}); err != nil {
		return err
	}

	if info != nil {
		m.mu.Lock()
		m.deviceInfo = info
		m.mu.Unlock()
		m.log.Info("connected to device",
			zap.String("model", info.Model),
			zap.String("android_version", info.AndroidVersion),
		)
	}

	if !installed {
		return fmt.Errorf("app %s is not installed on device", m.cfg.AppPackage)
	}
	return nil
}

// runLoop is the single owner of detector, remediator, and statistics
// state. It multiplexes log lines and the two tickers; every branch runs
// to completion before the next is taken.
func (m *Monitor) runLoop(ctx context.Context) {
	healthTicker := m.clk.Ticker(m.cfg.HealthInterval())
	defer healthTicker.Stop()
	maintTicker := m.clk.Ticker(m.cfg.MaintInterval())
	defer maintTicker.Stop()

	lines := m.tailer.Lines()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			for _, derr := range m.det.AnalyzeLogLine(line.Line) {
				m.handleError(ctx, derr)
			}
		case <-healthTicker.C:
			m.healthCheck(ctx)
		case <-maintTicker.C:
			m.maintenance(ctx)
		}
	}
}

// handleError is the single detection-to-remediation path: record, decide,
// rate-limit, fix, fold the outcome into statistics.
func (m *Monitor) handleError(ctx context.Context, derr domain.DetectedError) {
	m.mu.Lock()
	m.stats.ErrorsDetected++
	m.stats.LastErrorTime = m.clk.Now()
	m.mu.Unlock()

	m.det.Record(derr)

	m.log.Warn("error detected",
		zap.String("kind", string(derr.Kind)),
		zap.String("severity", string(derr.Severity)),
		zap.String("message", derr.Message),
	)

	if !m.cfg.EnableAutoFix {
		return
	}
	if !m.det.ShouldEscalate(derr) {
		return
	}
	if m.rem.RecentAttempts(time.Hour) >= m.cfg.MaxFixAttemptsPerHour {
		m.log.Info("fix rate limit reached, deferring",
			zap.Int("limit", m.cfg.MaxFixAttemptsPerHour),
		)
		return
	}

	m.mu.Lock()
	m.stats.FixesAttempted++
	m.stats.LastFixTime = m.clk.Now()
	m.mu.Unlock()

	outcome := m.rem.AttemptFix(ctx, derr)
	if outcome == nil {
		return
	}

	m.mu.Lock()
	if outcome.Succeeded() {
		m.stats.SuccessfulFixes++
	} else {
		m.stats.FailedFixes++
	}
	m.mu.Unlock()
}

// healthCheck runs the periodic probes in fixed order: connection first,
// then app state, memory, and UI. A dead connection that cannot be
// restored abandons the rest of the cycle.
func (m *Monitor) healthCheck(ctx context.Context) {
	var connected bool
	if err := m.pool.Do(ctx, func() {
		connected = m.dev.IsConnected(ctx)
	}); err != nil {
		return
	}
	if !connected {
		m.log.Warn("device connection lost, attempting reconnect")
		var reconnectErr error
		if err := m.pool.Do(ctx, func() {
			reconnectErr = m.dev.EnsureConnected(ctx)
		}); err != nil {
			return
		}
		if reconnectErr != nil {
			m.log.Error("reconnect failed, skipping health cycle", zap.Error(reconnectErr))
			return
		}
	}

	var (
		running  bool
		activity string
	)
	if err := m.pool.Do(ctx, func() {
		running = m.dev.IsAppRunning(ctx)
		activity, _ = m.dev.CurrentActivity(ctx)
	}); err != nil {
		return
	}
	for _, derr := range m.det.AnalyzeAppState(running, activity) {
		m.handleError(ctx, derr)
	}

	var (
		mem    *domain.MemoryStats
		memErr error
	)
	if err := m.pool.Do(ctx, func() {
		mem, memErr = m.dev.MemoryUsage(ctx)
	}); err != nil {
		return
	}
	if memErr != nil {
		m.log.Warn("memory probe failed", zap.Error(memErr))
	} else {
		for _, derr := range m.det.AnalyzeMemory(mem) {
			m.handleError(ctx, derr)
		}
	}

	var (
		dump    string
		dumpErr error
	)
	if err := m.pool.Do(ctx, func() {
		dump, dumpErr = m.dev.ScreenDump(ctx)
	}); err != nil {
		return
	}
	if dumpErr != nil {
		m.log.Warn("UI dump failed", zap.Error(dumpErr))
		return
	}
	for _, derr := range m.det.AnalyzeUIDump(dump) {
		m.handleError(ctx, derr)
	}
}

// maintenance runs the low-frequency housekeeping pass: device cache
// hygiene, a report snapshot, and history trims.
func (m *Monitor) maintenance(ctx context.Context) {
	var maintErr error
	if err := m.pool.Do(ctx, func() {
		maintErr = m.rem.Maintain(ctx)
	}); err != nil {
		return
	}
	if maintErr != nil {
		m.log.Warn("maintenance tasks failed", zap.Error(maintErr))
	}

	// Refresh device identity for the report; best effort.
	var info *domain.DeviceInfo
	if err := m.pool.Do(ctx, func() {
		info, _ = m.dev.DeviceInfo(ctx)
	}); err == nil && info != nil {
		m.mu.Lock()
		m.deviceInfo = info
		m.mu.Unlock()
	}

	if err := m.writeReport(); err != nil {
		m.log.Warn("report write failed", zap.Error(err))
	}

	m.det.TrimHistory()
	m.rem.TrimHistory()
}

// shutdown is the single exit path: even a failed start runs the final
// report write and transport disconnect.
func (m *Monitor) shutdown() {
	m.setStatus(domain.StatusStopping)
	m.log.Info("stopping monitoring")

	if m.tailer != nil {
		m.tailer.Stop()
	}

	if err := m.writeReport(); err != nil {
		m.log.Warn("final report write failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.dev.Disconnect(ctx); err != nil {
		m.log.Warn("disconnect failed", zap.Error(err))
	}

	m.pool.Close()
	m.setStatus(domain.StatusStopped)
	m.log.Info("monitoring stopped")
}

// Stop requests shutdown. Safe to call from any goroutine, any number of
// times; calls after the first are no-ops.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

func (m *Monitor) setStatus(s domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if statusRank[s] < statusRank[m.stats.CurrentStatus] {
		return
	}
	m.stats.CurrentStatus = s
}

// Status returns a snapshot of the session counters. Safe to call
// concurrently with the run loop.
func (m *Monitor) Status() domain.MonitoringStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Uptime reports how long the session has been up.
func (m *Monitor) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clk.Now().Sub(m.stats.StartTime)
}
