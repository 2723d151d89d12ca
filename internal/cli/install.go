package cli

import (
	"context"
	"fmt"

	"github.com/webviewer/tvmon/internal/adb"
	"github.com/webviewer/tvmon/internal/observability"
)

// InstallCmd installs (or reinstalls) the app APK on the device.
type InstallCmd struct {
	APK string `arg:"" type:"existingfile" help:"Path to the APK to install"`
}

// Run executes the install command.
func (c *InstallCmd) Run(globals *Globals) error {
	cfg := globals.Config
	log := observability.NewStderrLogger(cfg)
	defer log.Sync()

	dev := adb.NewClient(cfg.DeviceIP, cfg.DevicePort, cfg.AppPackage, cfg.AppActivity, log.Named("adb"))

	ctx := context.Background()
	if err := dev.Connect(ctx); err != nil {
		return outputErrorCommon(globals, "CONNECT_FAILED", err.Error())
	}
	defer dev.Disconnect(ctx)

	if !globals.Quiet {
		fmt.Fprintf(globals.Stdout, "Installing %s on %s...\n", c.APK, cfg.DeviceID())
	}
	if err := dev.InstallAPK(ctx, c.APK); err != nil {
		return outputErrorCommon(globals, "INSTALL_FAILED", err.Error())
	}
	if !globals.Quiet {
		fmt.Fprintln(globals.Stdout, "Install complete")
	}
	return nil
}
