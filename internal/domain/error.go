package domain

import "time"

// Severity classifies how urgent a detected error is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Priority returns the numeric rank of a severity (higher = more severe)
func (s Severity) Priority() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// ErrorKind identifies a category of detected error. The vocabulary is
// fixed; the remediator dispatches on it.
type ErrorKind string

const (
	KindAppCrash         ErrorKind = "app_crash"
	KindANR              ErrorKind = "anr"
	KindOutOfMemory      ErrorKind = "out_of_memory"
	KindNetworkError     ErrorKind = "network_error"
	KindWebViewError     ErrorKind = "webview_error"
	KindProfileError     ErrorKind = "profile_error"
	KindPreferencesError ErrorKind = "preferences_error"
	KindFocusError       ErrorKind = "focus_error"
	KindLifecycleError   ErrorKind = "lifecycle_error"
	KindPermissionError  ErrorKind = "permission_error"
	KindResourceError    ErrorKind = "resource_error"
	KindAppNotRunning    ErrorKind = "app_not_running"
	KindHighMemoryUsage  ErrorKind = "high_memory_usage"
	KindMemoryLeak       ErrorKind = "potential_memory_leak"
	KindMissingUIElement ErrorKind = "missing_ui_element"
	KindNoFocusedElement ErrorKind = "no_focused_element"
	KindUnexpectedScreen ErrorKind = "unexpected_activity"
)

// ErrorSource identifies which probe produced an error.
type ErrorSource string

const (
	SourceLog      ErrorSource = "log"
	SourceMemory   ErrorSource = "memory"
	SourceUI       ErrorSource = "ui"
	SourceAppState ErrorSource = "app_state"
)

// DetectedError is an immutable record of one anomalous signal. Created by
// the classifier only; never mutated after creation.
type DetectedError struct {
	Kind      ErrorKind      `json:"kind"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Source    ErrorSource    `json:"source"`
}

// AppState is the coarse UI state inferred from a hierarchy dump.
type AppState string

const (
	StateSettings     AppState = "settings"
	StateLoading      AppState = "loading"
	StateErrorWelcome AppState = "error_welcome"
	StateBrowsing     AppState = "browsing"
	StateUnknown      AppState = "unknown"
)
