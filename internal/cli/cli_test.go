package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webviewer/tvmon/internal/config"
	"github.com/webviewer/tvmon/internal/domain"
)

func testGlobals(format string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Globals{
		Format: format,
		Stdout: stdout,
		Stderr: stderr,
		Config: config.Default(),
	}, stdout, stderr
}

func writeTestReport(t *testing.T) string {
	t.Helper()
	report := domain.Report{
		Timestamp:     time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		UptimeSeconds: 3600,
		Statistics: domain.MonitoringStats{
			CurrentStatus:  domain.StatusMonitoring,
			ErrorsDetected: 5,
			FixesAttempted: 2,
		},
		ErrorSummary: domain.ErrorSummary{
			TotalErrors:  5,
			RecentErrors: 3,
			ErrorKinds:   map[domain.ErrorKind]int{domain.KindANR: 2},
		},
		FixStatistics: domain.FixStats{TotalFixes: 2, SuccessRate: 50},
	}
	data, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestVersionCmd(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		require.NoError(t, (&VersionCmd{}).Run(globals))
		assert.Contains(t, stdout.String(), "tvmon version")
	})

	t.Run("json", func(t *testing.T) {
		globals, stdout, _ := testGlobals("json")
		require.NoError(t, (&VersionCmd{}).Run(globals))

		var out map[string]string
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.Equal(t, "version", out["type"])
	})
}

func TestStatusCmd(t *testing.T) {
	t.Run("renders text summary", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &StatusCmd{File: writeTestReport(t)}

		require.NoError(t, cmd.Run(globals))
		out := stdout.String()
		assert.Contains(t, out, "monitoring")
		assert.Contains(t, out, "5 total, 3 recent")
		assert.Contains(t, out, "anr")
	})

	t.Run("json passes report through", func(t *testing.T) {
		globals, stdout, _ := testGlobals("json")
		cmd := &StatusCmd{File: writeTestReport(t)}

		require.NoError(t, cmd.Run(globals))
		var report domain.Report
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.Equal(t, 5, report.Statistics.ErrorsDetected)
	})

	t.Run("missing report file", func(t *testing.T) {
		globals, _, stderr := testGlobals("text")
		cmd := &StatusCmd{File: filepath.Join(t.TempDir(), "nope.json")}

		assert.Error(t, cmd.Run(globals))
		assert.Contains(t, stderr.String(), "NO_REPORT")
	})
}

func TestReportCmd(t *testing.T) {
	t.Run("prints whole document", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ReportCmd{File: writeTestReport(t)}

		require.NoError(t, cmd.Run(globals))
		assert.Contains(t, stdout.String(), `"total_errors_detected": 5`)
	})

	t.Run("extracts a field", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ReportCmd{File: writeTestReport(t), Field: "statistics.current_status"}

		require.NoError(t, cmd.Run(globals))
		assert.Equal(t, "monitoring\n", stdout.String())
	})

	t.Run("unknown field errors", func(t *testing.T) {
		globals, _, _ := testGlobals("text")
		cmd := &ReportCmd{File: writeTestReport(t), Field: "no.such.path"}
		assert.Error(t, cmd.Run(globals))
	})
}

func TestFixCmdValidation(t *testing.T) {
	globals, stdout, _ := testGlobals("json")
	err := (&FixCmd{}).Run(globals)
	require.Error(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "NO_FIX_SELECTED", out["code"])
}

func TestOutputErrorCommon(t *testing.T) {
	t.Run("json goes to stdout", func(t *testing.T) {
		globals, stdout, stderr := testGlobals("json")
		err := outputErrorCommon(globals, "SOME_CODE", "it broke")
		require.Error(t, err)
		assert.Contains(t, stdout.String(), "SOME_CODE")
		assert.Empty(t, stderr.String())
	})

	t.Run("text goes to stderr", func(t *testing.T) {
		globals, stdout, stderr := testGlobals("text")
		err := outputErrorCommon(globals, "SOME_CODE", "it broke")
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "it broke")
		assert.Empty(t, stdout.String())
	})
}
