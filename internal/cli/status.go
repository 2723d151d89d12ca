package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/webviewer/tvmon/internal/domain"
)

// StatusCmd summarizes the latest monitoring report.
type StatusCmd struct {
	File string `help:"Report file to read (defaults to the configured report_file)"`
}

// Run executes the status command.
func (c *StatusCmd) Run(globals *Globals) error {
	path := c.File
	if path == "" {
		path = globals.Config.ReportFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return outputErrorCommon(globals, "NO_REPORT",
			fmt.Sprintf("cannot read report %s: %v (is the monitor running?)", path, err))
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return outputErrorCommon(globals, "BAD_REPORT",
			fmt.Sprintf("cannot parse report %s: %v", path, err))
	}

	if globals.Format == "json" {
		return json.NewEncoder(globals.Stdout).Encode(report)
	}
	return c.outputText(globals, &report)
}

func (c *StatusCmd) outputText(globals *Globals, report *domain.Report) error {
	st := stylesFor(globals)
	out := globals.Stdout

	statusStyle := st.Success
	switch report.Statistics.CurrentStatus {
	case domain.StatusStopped, domain.StatusStopping:
		statusStyle = st.Danger
	case domain.StatusInitializing, domain.StatusStarting:
		statusStyle = st.Warning
	}

	fmt.Fprintln(out, st.Header.Render("Monitoring Status"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s %s\n", st.Label.Render("status:  "), statusStyle.Render(string(report.Statistics.CurrentStatus)))
	fmt.Fprintf(out, "  %s %s\n", st.Label.Render("uptime:  "), st.Value.Render(formatUptime(report.UptimeSeconds)))
	fmt.Fprintf(out, "  %s %s\n", st.Label.Render("as of:   "), st.Value.Render(report.Timestamp.Format(time.RFC3339)))

	if report.DeviceInfo != nil {
		fmt.Fprintf(out, "  %s %s\n", st.Label.Render("device:  "),
			st.Value.Render(fmt.Sprintf("%s (Android %s)", report.DeviceInfo.Model, report.DeviceInfo.AndroidVersion)))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, st.Header.Render("Errors"))
	fmt.Fprintf(out, "  %s %d total, %d recent\n", st.Label.Render("detected:"),
		report.ErrorSummary.TotalErrors, report.ErrorSummary.RecentErrors)
	for kind, count := range report.ErrorSummary.ErrorKinds {
		fmt.Fprintf(out, "    %-28s %d\n", kind, count)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, st.Header.Render("Fixes"))
	fmt.Fprintf(out, "  %s %d attempted, %.0f%% successful, %d in the last hour\n",
		st.Label.Render("applied: "),
		report.FixStatistics.TotalFixes,
		report.FixStatistics.SuccessRate,
		report.FixStatistics.RecentFixes,
	)

	return nil
}

func formatUptime(seconds float64) string {
	return (time.Duration(seconds) * time.Second).String()
}
