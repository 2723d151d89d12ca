package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/webviewer/tvmon/internal/adb"
	"github.com/webviewer/tvmon/internal/domain"
	"github.com/webviewer/tvmon/internal/observability"
	"github.com/webviewer/tvmon/internal/remedy"
)

// FixCmd runs a single remediation by hand, outside the monitoring loop.
type FixCmd struct {
	Type      string `help:"Error kind to remediate (e.g. app_crash, anr, app_not_running)"`
	Emergency bool   `help:"Run the full emergency recovery procedure instead"`
}

// Run executes the fix command.
func (c *FixCmd) Run(globals *Globals) error {
	if c.Type == "" && !c.Emergency {
		return outputErrorCommon(globals, "NO_FIX_SELECTED", "specify --type <kind> or --emergency")
	}

	cfg := globals.Config
	if c.Emergency && !cfg.EnableEmergencyRecovery {
		return outputErrorCommon(globals, "EMERGENCY_DISABLED",
			"emergency recovery is disabled in the configuration")
	}
	log := observability.NewStderrLogger(cfg)
	defer log.Sync()

	clk := clock.New()
	dev := adb.NewClient(cfg.DeviceIP, cfg.DevicePort, cfg.AppPackage, cfg.AppActivity, log.Named("adb"))
	rem := remedy.NewRemediator(dev, cfg.Cooldown(), clk, log.Named("remedy"))

	ctx := context.Background()
	if err := dev.Connect(ctx); err != nil {
		return outputErrorCommon(globals, "CONNECT_FAILED", err.Error())
	}
	defer dev.Disconnect(ctx)

	if c.Emergency {
		if rem.EmergencyRecovery(ctx) {
			return c.emit(globals, "emergency_recovery", string(domain.FixSuccess))
		}
		return outputErrorCommon(globals, "EMERGENCY_FAILED", "emergency recovery did not restore the app")
	}

	outcome := rem.AttemptFix(ctx, domain.DetectedError{
		Kind:      domain.ErrorKind(c.Type),
		Severity:  domain.SeverityMedium,
		Message:   "manual fix invocation",
		Timestamp: clk.Now(),
		Source:    domain.SourceLog,
	})
	if outcome == nil {
		return outputErrorCommon(globals, "UNKNOWN_FIX_TYPE",
			fmt.Sprintf("no fix strategy for %q", c.Type))
	}
	return c.emit(globals, outcome.Action, string(outcome.Result))
}

func (c *FixCmd) emit(globals *Globals, action, result string) error {
	if globals.Format == "json" {
		return json.NewEncoder(globals.Stdout).Encode(map[string]string{
			"type":   "fix",
			"action": action,
			"result": result,
		})
	}

	st := stylesFor(globals)
	style := st.Success
	if result != string(domain.FixSuccess) {
		style = st.Warning
	}
	if result == string(domain.FixFailed) {
		style = st.Danger
	}
	fmt.Fprintf(globals.Stdout, "%s: %s\n", action, style.Render(result))
	return nil
}
