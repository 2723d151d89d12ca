package detect

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/webviewer/tvmon/internal/domain"
)

const (
	// History caps: append up to maxHistory, trim back to retainHistory
	// during maintenance.
	maxHistory    = 1000
	retainHistory = 500

	// Total PSS above this emits high_memory_usage.
	memoryThresholdKB = 500000
	// A sample this many times the previous one emits potential_memory_leak.
	leakGrowthFactor = 1.5

	// Escalation window and repeat count for medium-severity errors.
	escalationWindow  = 10 * time.Minute
	escalationRepeats = 3

	crashWindowLines = 20
)

// relevanceKeywords gate which log lines are worth matching against the
// full rule set. Cheap substring pre-filter for a high-volume stream.
var relevanceKeywords = []string{"fatal", "error", "exception", "crash", "anr"}

type extractFunc func(text, matched string) map[string]any

// rule is one named detection pattern with a fixed severity.
type rule struct {
	kind     domain.ErrorKind
	re       *regexp.Regexp
	severity domain.Severity
	extract  extractFunc
}

// Detector turns raw device signals into typed DetectedErrors and keeps
// the bounded error history. Not safe for concurrent use: the orchestrator
// run loop is the single owner.
type Detector struct {
	appPackage string
	ui         UIConfig
	rules      []rule
	history    []domain.DetectedError
	clk        clock.Clock
	log        *zap.Logger

	// Single-slot previous memory sample, process lifetime only.
	lastMemoryKB   int
	haveLastMemory bool
}

// NewDetector builds a detector for the given app package.
func NewDetector(appPackage string, ui UIConfig, clk clock.Clock, log *zap.Logger) *Detector {
	d := &Detector{
		appPackage: appPackage,
		ui:         ui,
		clk:        clk,
		log:        log,
	}
	d.rules = d.buildRules()
	return d
}

func (d *Detector) buildRules() []rule {
	pkg := regexp.QuoteMeta(d.appPackage)
	compile := func(pattern string) *regexp.Regexp {
		return regexp.MustCompile(`(?im)` + pattern)
	}
	return []rule{
		{
			kind:     domain.KindAppCrash,
			re:       compile(`FATAL EXCEPTION.*` + pkg),
			severity: domain.SeverityCritical,
			extract:  extractCrash,
		},
		{
			kind:     domain.KindANR,
			re:       compile(`ANR in ` + pkg),
			severity: domain.SeverityHigh,
			extract: func(_, matched string) map[string]any {
				return map[string]any{"anr_text": matched, "reason": "Application not responding"}
			},
		},
		{
			kind:     domain.KindOutOfMemory,
			re:       compile(`OutOfMemoryError|OOM|Low memory|GC_FOR_ALLOC`),
			severity: domain.SeverityHigh,
		},
		{
			kind:     domain.KindNetworkError,
			re:       compile(`NetworkOnMainThreadException|ConnectException|SocketException|UnknownHostException`),
			severity: domain.SeverityMedium,
			extract: func(_, matched string) map[string]any {
				return map[string]any{"network_error": matched, "error_type": "connectivity"}
			},
		},
		{
			kind:     domain.KindWebViewError,
			re:       compile(`WebView.*error|onReceivedError|ERR_|Failed to load|net::ERR_`),
			severity: domain.SeverityMedium,
			extract: func(_, matched string) map[string]any {
				return map[string]any{"webview_error": matched, "component": "webview"}
			},
		},
		{
			kind:     domain.KindProfileError,
			re:       compile(`ProfileManager.*error|Failed to.*profile|Profile.*not found`),
			severity: domain.SeverityMedium,
		},
		{
			kind:     domain.KindPreferencesError,
			re:       compile(`SharedPreferences.*error|Failed to save|Gson.*error`),
			severity: domain.SeverityLow,
		},
		{
			kind:     domain.KindFocusError,
			re:       compile(`Focus.*error|IllegalStateException.*focus|Unable to focus`),
			severity: domain.SeverityLow,
		},
		{
			kind:     domain.KindLifecycleError,
			re:       compile(pkg + `.*IllegalStateException|Activity.*destroyed|Fragment.*destroyed`),
			severity: domain.SeverityMedium,
		},
		{
			kind:     domain.KindPermissionError,
			re:       compile(`SecurityException|Permission denied|ACCESS_DENIED`),
			severity: domain.SeverityMedium,
		},
		{
			kind:     domain.KindResourceError,
			re:       compile(`ResourceNotFoundException|Unable to find resource|Resources\$NotFoundException`),
			severity: domain.SeverityLow,
		},
	}
}

// AnalyzeLogLine matches one logcat line against every rule. All matching
// rules fire, each producing an independent error.
func (d *Detector) AnalyzeLogLine(line string) []domain.DetectedError {
	if !d.relevant(line) {
		return nil
	}

	var errs []domain.DetectedError
	for _, r := range d.rules {
		matched := r.re.FindString(line)
		if matched == "" {
			continue
		}
		details := map[string]any{"matched_text": matched}
		if r.extract != nil {
			details = r.extract(line, matched)
		}
		errs = append(errs, domain.DetectedError{
			Kind:      r.kind,
			Severity:  r.severity,
			Message:   kindMessage(r.kind),
			Details:   details,
			Timestamp: d.clk.Now(),
			Source:    domain.SourceLog,
		})
	}
	return errs
}

// relevant is the pre-filter: only lines mentioning the app package or a
// generic failure keyword are matched against the rule set.
func (d *Detector) relevant(line string) bool {
	if strings.Contains(line, d.appPackage) {
		return true
	}
	lower := strings.ToLower(line)
	for _, kw := range relevanceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func kindMessage(kind domain.ErrorKind) string {
	words := strings.Split(string(kind), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ") + " detected"
}

// extractCrash collects a bounded window of lines starting at the fatal
// exception marker plus a best-effort exception type.
func extractCrash(text, _ string) map[string]any {
	lines := strings.Split(text, "\n")
	start := 0
	for i, line := range lines {
		if strings.Contains(line, "FATAL EXCEPTION") {
			start = i
			break
		}
	}

	var trace []string
	for i := start; i < len(lines) && i < start+crashWindowLines; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			trace = append(trace, lines[i])
		}
	}

	return map[string]any{
		"crash_trace":    trace,
		"exception_type": extractExceptionType(trace),
	}
}

// extractExceptionType returns the token preceding the first
// "Exception:"/"Error:" colon in the trace, or "".
func extractExceptionType(trace []string) string {
	for _, line := range trace {
		if !strings.Contains(line, "Exception:") && !strings.Contains(line, "Error:") {
			continue
		}
		head, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(head)
		if len(fields) > 0 {
			return fields[len(fields)-1]
		}
	}
	return ""
}

// AnalyzeAppState checks the process-level signals: the app must be
// running, and the foreground activity must be one of the app's screens.
func (d *Detector) AnalyzeAppState(running bool, currentActivity string) []domain.DetectedError {
	var errs []domain.DetectedError

	if !running {
		errs = append(errs, domain.DetectedError{
			Kind:      domain.KindAppNotRunning,
			Severity:  domain.SeverityHigh,
			Message:   "App is not running when it should be",
			Details:   map[string]any{"expected_state": "running", "actual_state": "stopped"},
			Timestamp: d.clk.Now(),
			Source:    domain.SourceAppState,
		})
	}

	expected := d.expectedActivities()
	if currentActivity != "" {
		known := false
		for _, act := range expected {
			if strings.Contains(currentActivity, act) {
				known = true
				break
			}
		}
		if !known {
			errs = append(errs, domain.DetectedError{
				Kind:      domain.KindUnexpectedScreen,
				Severity:  domain.SeverityLow,
				Message:   fmt.Sprintf("App in unexpected activity: %s", currentActivity),
				Details:   map[string]any{"current_activity": currentActivity, "expected_activities": expected},
				Timestamp: d.clk.Now(),
				Source:    domain.SourceAppState,
			})
		}
	}

	return errs
}

func (d *Detector) expectedActivities() []string {
	return []string{
		d.appPackage + ".MainActivity",
		d.appPackage + ".SettingsActivity",
		d.appPackage + ".ProfilesActivity",
		d.appPackage + ".ProfileEditActivity",
	}
}

// AnalyzeMemory checks the sampled counters against the absolute threshold
// and against the previous sample. The previous sample is a single slot,
// not a window: a known false-positive-prone heuristic, kept as-is.
func (d *Detector) AnalyzeMemory(mem *domain.MemoryStats) []domain.DetectedError {
	if mem == nil {
		return nil
	}

	var errs []domain.DetectedError
	total := mem.TotalPSSKB

	if total > memoryThresholdKB {
		errs = append(errs, domain.DetectedError{
			Kind:      domain.KindHighMemoryUsage,
			Severity:  domain.SeverityMedium,
			Message:   fmt.Sprintf("High memory usage detected: %dKB", total),
			Details:   map[string]any{"memory_usage_kb": total, "threshold_kb": memoryThresholdKB},
			Timestamp: d.clk.Now(),
			Source:    domain.SourceMemory,
		})
	}

	if d.haveLastMemory && d.lastMemoryKB > 0 && float64(total) > float64(d.lastMemoryKB)*leakGrowthFactor {
		increase := float64(total-d.lastMemoryKB) / float64(d.lastMemoryKB) * 100
		errs = append(errs, domain.DetectedError{
			Kind:      domain.KindMemoryLeak,
			Severity:  domain.SeverityHigh,
			Message:   fmt.Sprintf("Potential memory leak: %dKB -> %dKB", d.lastMemoryKB, total),
			Details: map[string]any{
				"previous_usage_kb":   d.lastMemoryKB,
				"current_usage_kb":    total,
				"increase_percentage": increase,
			},
			Timestamp: d.clk.Now(),
			Source:    domain.SourceMemory,
		})
	}

	d.lastMemoryKB = total
	d.haveLastMemory = true
	return errs
}

// Record appends an error to the bounded history.
func (d *Detector) Record(err domain.DetectedError) {
	d.history = append(d.history, err)
	if len(d.history) > maxHistory {
		d.history = d.history[len(d.history)-maxHistory:]
	}
	d.log.Error("detected error",
		zap.String("kind", string(err.Kind)),
		zap.String("severity", string(err.Severity)),
		zap.String("message", err.Message),
	)
}

// Recent returns the errors recorded within the trailing window.
func (d *Detector) Recent(window time.Duration) []domain.DetectedError {
	cutoff := d.clk.Now().Add(-window)
	var recent []domain.DetectedError
	for _, e := range d.history {
		if !e.Timestamp.Before(cutoff) {
			recent = append(recent, e)
		}
	}
	return recent
}

// HistoryLen returns the current history length.
func (d *Detector) HistoryLen() int { return len(d.history) }

// TrimHistory shrinks the history to the retained cap. Called from the
// maintenance path.
func (d *Detector) TrimHistory() {
	if len(d.history) > retainHistory {
		d.history = d.history[len(d.history)-retainHistory:]
	}
}

// Summary aggregates the last hour of history for reporting.
func (d *Detector) Summary() domain.ErrorSummary {
	recent := d.Recent(time.Hour)

	summary := domain.ErrorSummary{
		TotalErrors:  len(d.history),
		RecentErrors: len(recent),
		ErrorKinds:   make(map[domain.ErrorKind]int),
		SeverityCounts: map[domain.Severity]int{
			domain.SeverityLow:      0,
			domain.SeverityMedium:   0,
			domain.SeverityHigh:     0,
			domain.SeverityCritical: 0,
		},
	}
	for _, e := range recent {
		summary.ErrorKinds[e.Kind]++
		summary.SeverityCounts[e.Severity]++
	}
	return summary
}

// ShouldEscalate is the sole gate deciding whether the remediator is
// invoked. Critical and high always escalate; medium escalates on the
// third same-kind error within the window; low never escalates.
func (d *Detector) ShouldEscalate(err domain.DetectedError) bool {
	switch err.Severity {
	case domain.SeverityCritical, domain.SeverityHigh:
		return true
	case domain.SeverityMedium:
		count := 0
		for _, e := range d.Recent(escalationWindow) {
			if e.Kind == err.Kind {
				count++
			}
		}
		return count >= escalationRepeats
	default:
		return false
	}
}
