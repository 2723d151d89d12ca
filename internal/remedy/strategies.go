package remedy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/webviewer/tvmon/internal/adb"
	"github.com/webviewer/tvmon/internal/domain"
)

type strategyFunc func(ctx context.Context, derr domain.DetectedError) (domain.FixResult, error)

// strategyFor maps an error kind to its strategy. The switch is the
// dispatch table: a kind without a case has no strategy and is skipped
// at the AttemptFix layer.
func (r *Remediator) strategyFor(kind domain.ErrorKind) strategyFunc {
	switch kind {
	case domain.KindAppCrash, domain.KindLifecycleError:
		return r.fixRestart
	case domain.KindANR:
		return r.fixANR
	case domain.KindOutOfMemory, domain.KindMemoryLeak:
		return r.fixMemory
	case domain.KindHighMemoryUsage:
		return r.fixHighMemory
	case domain.KindNetworkError:
		return r.fixNetwork
	case domain.KindWebViewError:
		return r.fixWebView
	case domain.KindProfileError:
		return r.fixProfile
	case domain.KindPreferencesError:
		return r.fixPreferences
	case domain.KindFocusError:
		return r.fixFocus
	case domain.KindAppNotRunning:
		return r.fixAppNotRunning
	case domain.KindMissingUIElement:
		return r.fixMissingUIElement
	case domain.KindNoFocusedElement:
		return r.fixNoFocus
	case domain.KindUnexpectedScreen:
		return r.fixUnexpectedActivity
	default:
		return nil
	}
}

// fixRestart force-stops and restarts the app, then verifies it came
// back up.
func (r *Remediator) fixRestart(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("restarting app")

	if err := r.dev.ForceStopApp(ctx); err != nil {
		return domain.FixFailed, nil
	}
	r.pause(2 * time.Second)

	if err := r.dev.StartApp(ctx); err == nil {
		r.pause(5 * time.Second)
		if r.dev.IsAppRunning(ctx) {
			return domain.FixSuccess, nil
		}
	}
	return domain.FixFailed, nil
}

// fixANR dismisses a possible ANR dialog with BACK, then restarts.
func (r *Remediator) fixANR(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing ANR by force restarting app")

	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeBack)
	r.pause(time.Second)

	if err := r.dev.ForceStopApp(ctx); err != nil {
		return domain.FixFailed, nil
	}
	r.pause(3 * time.Second)

	if err := r.dev.StartApp(ctx); err == nil {
		r.pause(5 * time.Second)
		if r.dev.IsAppRunning(ctx) {
			return domain.FixSuccess, nil
		}
	}
	return domain.FixFailed, nil
}

// fixMemory trims device caches and restarts. The restart is
// not re-verified: a successful start command is reported as success.
func (r *Remediator) fixMemory(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing memory issue by clearing cache")

	_ = r.dev.ForceStopApp(ctx)
	r.pause(2 * time.Second)

	if _, err := r.dev.RunCommand(ctx, "pm trim-caches 1000M", 0); err != nil {
		return domain.FixFailed, fmt.Errorf("cache trim: %w", err)
	}
	r.pause(2 * time.Second)

	if err := r.dev.StartApp(ctx); err == nil {
		r.pause(5 * time.Second)
		return domain.FixSuccess, nil
	}
	return domain.FixFailed, nil
}

// fixHighMemory asks the app to trim itself in place when it is running;
// otherwise falls back to the full memory fix.
func (r *Remediator) fixHighMemory(ctx context.Context, derr domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing high memory usage")

	if r.dev.IsAppRunning(ctx) {
		if _, err := r.dev.RunCommand(ctx, "am broadcast -a android.intent.action.TRIM_MEMORY", 0); err == nil {
			r.pause(2 * time.Second)
			return domain.FixPartial, nil
		}
	}
	return r.fixMemory(ctx, derr)
}

// fixNetwork drives the toolbar refresh control: up to the toolbar, right
// twice to the refresh button, then activate. Only meaningful when the
// app is up.
func (r *Remediator) fixNetwork(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing network error by refreshing webview")

	if !r.dev.IsAppRunning(ctx) {
		return domain.FixFailed, nil
	}

	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadUp)
	r.pause(500 * time.Millisecond)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadRight)
	r.pause(500 * time.Millisecond)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadRight)
	r.pause(500 * time.Millisecond)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadCenter)

	return domain.FixSuccess, nil
}

// fixWebView tries a refresh first and falls back to a full restart.
func (r *Remediator) fixWebView(ctx context.Context, derr domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing webview error")

	result, err := r.fixNetwork(ctx, derr)
	if err == nil && result == domain.FixSuccess {
		return domain.FixSuccess, nil
	}
	return r.fixRestart(ctx, derr)
}

// fixProfile navigates to the profiles control and opens it. The outcome
// is never verified, so this always reports partial.
func (r *Remediator) fixProfile(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing profile error by navigating to profiles")

	if !r.dev.IsAppRunning(ctx) {
		return domain.FixFailed, nil
	}

	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadUp)
	r.pause(500 * time.Millisecond)
	for i := 0; i < 5; i++ {
		_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadRight)
		r.pause(300 * time.Millisecond)
	}
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadCenter)

	return domain.FixPartial, nil
}

// fixPreferences clears all app data and restarts. Destructive: this also
// removes saved user profiles, a deliberate trade-off for corrupted
// preference stores.
func (r *Remediator) fixPreferences(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing preferences error by clearing app data")

	_ = r.dev.ForceStopApp(ctx)
	r.pause(2 * time.Second)

	if err := r.dev.ClearAppData(ctx); err != nil {
		return domain.FixFailed, nil
	}
	r.pause(3 * time.Second)

	if err := r.dev.StartApp(ctx); err == nil {
		r.pause(5 * time.Second)
		if r.dev.IsAppRunning(ctx) {
			return domain.FixSuccess, nil
		}
	}
	return domain.FixFailed, nil
}

// fixFocus resets navigation focus with BACK then CENTER.
func (r *Remediator) fixFocus(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing focus error by resetting navigation")

	if !r.dev.IsAppRunning(ctx) {
		return domain.FixFailed, nil
	}

	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeBack)
	r.pause(time.Second)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadCenter)

	return domain.FixPartial, nil
}

// fixAppNotRunning starts the app and verifies it is up.
func (r *Remediator) fixAppNotRunning(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("starting app")

	if err := r.dev.StartApp(ctx); err == nil {
		r.pause(5 * time.Second)
		if r.dev.IsAppRunning(ctx) {
			return domain.FixSuccess, nil
		}
	}
	return domain.FixFailed, nil
}

// fixMissingUIElement is state-aware: browser elements legitimately absent
// in settings, loading, or the welcome screen are not defects. Genuinely
// missing elements while browsing trigger a return-to-foreground recovery;
// an unknown state gets a gentler nudge.
func (r *Remediator) fixMissingUIElement(ctx context.Context, derr domain.DetectedError) (domain.FixResult, error) {
	element, _ := derr.Details["missing_element"].(string)
	state, _ := derr.Details["app_state"].(string)
	if element == "" {
		element = "unknown"
	}
	if state == "" {
		state = string(domain.StateUnknown)
	}

	r.log.Info("fixing missing UI element",
		zap.String("element", element),
		zap.String("state", state),
	)

	if !r.dev.IsAppRunning(ctx) {
		r.log.Warn("app not running, cannot fix missing UI element")
		return domain.FixFailed, nil
	}

	switch domain.AppState(state) {
	case domain.StateSettings, domain.StateLoading, domain.StateErrorWelcome:
		// Browser elements are hidden on these screens; not a defect.
		r.log.Info("missing browser elements expected in this state", zap.String("state", state))
		return domain.FixSuccess, nil
	case domain.StateBrowsing:
		r.log.Warn("browser elements missing while browsing, attempting recovery")
		return r.recoverToMain(ctx)
	default:
		r.log.Info("unknown app state, attempting gentle recovery")
		return r.gentleRecovery(ctx)
	}
}

// recoverToMain backs out of menus and returns to the app's main screen.
func (r *Remediator) recoverToMain(ctx context.Context) (domain.FixResult, error) {
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeBack)
	r.pause(500 * time.Millisecond)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeHome)
	r.pause(time.Second)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadCenter)
	r.pause(500 * time.Millisecond)

	return domain.FixPartial, nil
}

// gentleRecovery nudges navigation to refresh UI state without changing
// screens.
func (r *Remediator) gentleRecovery(ctx context.Context) (domain.FixResult, error) {
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadDown)
	r.pause(300 * time.Millisecond)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadUp)
	r.pause(300 * time.Millisecond)

	return domain.FixPartial, nil
}

// fixNoFocus re-establishes focus with a small navigation sequence.
func (r *Remediator) fixNoFocus(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing no focused element")

	if !r.dev.IsAppRunning(ctx) {
		return domain.FixFailed, nil
	}

	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadDown)
	r.pause(500 * time.Millisecond)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadUp)
	r.pause(500 * time.Millisecond)
	_ = r.dev.SendKeyEvent(ctx, adb.KeycodeDpadCenter)

	return domain.FixPartial, nil
}

// fixUnexpectedActivity backs out toward the main screen. Never verified.
func (r *Remediator) fixUnexpectedActivity(ctx context.Context, _ domain.DetectedError) (domain.FixResult, error) {
	r.log.Info("fixing unexpected activity by navigating to main")

	for i := 0; i < 3; i++ {
		_ = r.dev.SendKeyEvent(ctx, adb.KeycodeBack)
		r.pause(time.Second)
	}
	return domain.FixPartial, nil
}
