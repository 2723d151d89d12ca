package detect

import (
	"fmt"
	"strings"

	"github.com/webviewer/tvmon/internal/domain"
)

// coreElements is the unconditional fallback expectation when state-aware
// checking is disabled, and the forced expectation for browsing in strict
// mode.
var coreElements = []string{"profilesButton", "webView", "browserToolbar"}

const focusedMarker = `focused="true"`

// UIConfig controls the state-aware UI checks.
type UIConfig struct {
	StateAwareChecking bool
	ExpectedByState    map[string][]string
	IgnoreMissingIn    []string
	StrictChecking     bool
	FocusEnabled       bool
	FocusIgnoreIn      []string
}

// DefaultUIConfig returns the expectations for the stock app screens.
func DefaultUIConfig() UIConfig {
	return UIConfig{
		StateAwareChecking: true,
		ExpectedByState: map[string][]string{
			string(domain.StateBrowsing): {"profilesButton", "webView", "browserToolbar"},
			string(domain.StateSettings): {"settingsContainer"},
		},
		IgnoreMissingIn: []string{string(domain.StateLoading), string(domain.StateErrorWelcome)},
		FocusEnabled:    true,
		FocusIgnoreIn:   []string{string(domain.StateLoading)},
	}
}

// InferAppState infers the coarse UI state from a hierarchy dump. Priority
// order is a policy decision: settings markers short-circuit before the
// loading and browsing checks even when several markers coexist.
func InferAppState(dump string) domain.AppState {
	if strings.Contains(dump, "SettingsActivity") ||
		strings.Contains(dump, "ProfilesActivity") ||
		strings.Contains(dump, "ProfileEditActivity") {
		return domain.StateSettings
	}

	lower := strings.ToLower(dump)
	if strings.Contains(lower, "loading") || strings.Contains(lower, "progress") {
		return domain.StateLoading
	}

	visible := !strings.Contains(dump, `visibility="gone"`)
	if strings.Contains(dump, "welcomeContainer") && visible {
		return domain.StateErrorWelcome
	}
	if strings.Contains(dump, "webViewCard") && visible {
		return domain.StateBrowsing
	}

	return domain.StateUnknown
}

// AnalyzeUIDump runs the expected-element and focus checks against a UI
// hierarchy dump.
func (d *Detector) AnalyzeUIDump(dump string) []domain.DetectedError {
	if dump == "" {
		return nil
	}

	state := InferAppState(dump)
	var errs []domain.DetectedError

	expected := d.expectedElementsFor(state)
	for _, element := range expected {
		if strings.Contains(dump, element) {
			continue
		}
		errs = append(errs, domain.DetectedError{
			Kind:     domain.KindMissingUIElement,
			Severity: domain.SeverityLow,
			Message:  fmt.Sprintf("Missing UI element: %s (state: %s)", element, state),
			Details: map[string]any{
				"missing_element":   element,
				"app_state":         string(state),
				"expected_elements": expected,
			},
			Timestamp: d.clk.Now(),
			Source:    domain.SourceUI,
		})
	}

	if d.ui.FocusEnabled && !containsState(d.ui.FocusIgnoreIn, state) {
		if !strings.Contains(dump, focusedMarker) {
			errs = append(errs, domain.DetectedError{
				Kind:      domain.KindNoFocusedElement,
				Severity:  domain.SeverityLow,
				Message:   fmt.Sprintf("No focused UI element detected (state: %s)", state),
				Details:   map[string]any{"app_state": string(state)},
				Timestamp: d.clk.Now(),
				Source:    domain.SourceUI,
			})
		}
	}

	return errs
}

// expectedElementsFor resolves the element expectation for a state.
func (d *Detector) expectedElementsFor(state domain.AppState) []string {
	if !d.ui.StateAwareChecking {
		return coreElements
	}

	expected := d.ui.ExpectedByState[string(state)]

	if containsState(d.ui.IgnoreMissingIn, state) {
		expected = nil
	}

	// Strict mode forces the always-visible trio while browsing.
	if d.ui.StrictChecking && state == domain.StateBrowsing {
		expected = coreElements
	}

	return expected
}

func containsState(states []string, state domain.AppState) bool {
	for _, s := range states {
		if s == string(state) {
			return true
		}
	}
	return false
}
