package domain

import "time"

// Status is the orchestrator lifecycle state. Transitions only move
// forward along initializing -> starting -> monitoring -> stopping ->
// stopped.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusStarting     Status = "starting"
	StatusMonitoring   Status = "monitoring"
	StatusStopping     Status = "stopping"
	StatusStopped      Status = "stopped"
)

// MonitoringStats aggregates the running counters for a monitoring
// session. Owned and mutated by the orchestrator only.
type MonitoringStats struct {
	StartTime       time.Time `json:"start_time"`
	ErrorsDetected  int       `json:"total_errors_detected"`
	FixesAttempted  int       `json:"total_fixes_attempted"`
	SuccessfulFixes int       `json:"successful_fixes"`
	FailedFixes     int       `json:"failed_fixes"`
	CurrentStatus   Status    `json:"current_status"`
	LastErrorTime   time.Time `json:"last_error_time,omitempty"`
	LastFixTime     time.Time `json:"last_fix_time,omitempty"`
}

// ErrorSummary summarizes classifier history for reporting.
type ErrorSummary struct {
	TotalErrors    int               `json:"total_errors"`
	RecentErrors   int               `json:"recent_errors"`
	ErrorKinds     map[ErrorKind]int `json:"error_types"`
	SeverityCounts map[Severity]int  `json:"severity_counts"`
}

// ActionStats counts attempts and successes for one remediation action.
type ActionStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
}

// FixStats summarizes remediator history for reporting.
type FixStats struct {
	TotalFixes  int                    `json:"total_fixes"`
	SuccessRate float64                `json:"success_rate"`
	FixTypes    map[string]ActionStats `json:"fix_types,omitempty"`
	RecentFixes int                    `json:"recent_fixes"`
}

// Report is the status document persisted for external tooling.
type Report struct {
	Timestamp     time.Time       `json:"timestamp"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Statistics    MonitoringStats `json:"statistics"`
	ErrorSummary  ErrorSummary    `json:"error_summary"`
	FixStatistics FixStats        `json:"fix_statistics"`
	DeviceInfo    *DeviceInfo     `json:"device_info,omitempty"`
}
