package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/webviewer/tvmon/internal/adb"
	"github.com/webviewer/tvmon/internal/monitor"
	"github.com/webviewer/tvmon/internal/observability"
)

// MonitorCmd runs the continuous monitoring loop until interrupted.
type MonitorCmd struct {
	ReportFile string `help:"Override report file path"`
	NoAutoFix  bool   `help:"Detect and log errors without attempting fixes"`
}

// Run executes the monitor command.
func (c *MonitorCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if c.ReportFile != "" {
		cfg.ReportFile = c.ReportFile
	}
	if c.NoAutoFix {
		cfg.EnableAutoFix = false
	}
	if globals.Verbose {
		cfg.LogLevel = "debug"
	}

	log := observability.NewStderrLogger(cfg)
	defer log.Sync()

	dev := adb.NewClient(cfg.DeviceIP, cfg.DevicePort, cfg.AppPackage, cfg.AppActivity, log.Named("adb"))
	mon := monitor.New(cfg, dev, clock.New(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !globals.Quiet {
		fmt.Fprintf(globals.Stdout, "Monitoring %s on %s (Ctrl+C to stop)\n",
			cfg.AppPackage, cfg.DeviceID())
	}

	var g errgroup.Group

	g.Go(func() error {
		defer cancel()
		return mon.Run(runCtx)
	})

	// Periodic one-line status for interactive runs.
	if !globals.Quiet && globals.Format == "text" {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return nil
				case <-ticker.C:
					stats := mon.Status()
					fmt.Fprintf(globals.Stdout,
						"status=%s errors=%d fixes=%d/%d uptime=%s\n",
						stats.CurrentStatus,
						stats.ErrorsDetected,
						stats.SuccessfulFixes,
						stats.FixesAttempted,
						mon.Uptime().Round(time.Second),
					)
				}
			}
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return outputErrorCommon(globals, "MONITOR_FAILED", err.Error())
	}
	return nil
}
