package domain

import "time"

// FixResult is the outcome class of a remediation attempt.
type FixResult string

const (
	FixSuccess FixResult = "success"
	FixFailed  FixResult = "failed"
	FixPartial FixResult = "partial"
	FixSkipped FixResult = "skipped"
)

// FixOutcome records one remediation attempt. Details always embeds the
// originating error under "original_error".
type FixOutcome struct {
	Action    string         `json:"action"`
	Result    FixResult      `json:"result"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
}

// Succeeded reports whether the attempt fully fixed the problem.
func (o *FixOutcome) Succeeded() bool {
	return o.Result == FixSuccess
}
