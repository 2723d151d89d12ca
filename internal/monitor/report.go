package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/webviewer/tvmon/internal/domain"
)

// BuildReport assembles the current status document.
func (m *Monitor) BuildReport() domain.Report {
	m.mu.RLock()
	stats := m.stats
	info := m.deviceInfo
	m.mu.RUnlock()

	return domain.Report{
		Timestamp:     m.clk.Now(),
		UptimeSeconds: m.clk.Now().Sub(stats.StartTime).Seconds(),
		Statistics:    stats,
		ErrorSummary:  m.det.Summary(),
		FixStatistics: m.rem.Stats(),
		DeviceInfo:    info,
	}
}

// writeReport persists the report atomically: external tooling polling
// the file never observes a partial document.
func (m *Monitor) writeReport() error {
	if m.cfg.ReportFile == "" {
		return nil
	}

	report := m.BuildReport()
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(m.cfg.ReportFile)
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmpName, m.cfg.ReportFile); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}
