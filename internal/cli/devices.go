package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/webviewer/tvmon/internal/adb"
	"github.com/webviewer/tvmon/internal/domain"
	"github.com/webviewer/tvmon/internal/observability"
)

// DevicesCmd lists adb devices known to the local server.
type DevicesCmd struct{}

// Run executes the devices command.
func (c *DevicesCmd) Run(globals *Globals) error {
	cfg := globals.Config
	log := observability.NewStderrLogger(cfg)
	defer log.Sync()

	dev := adb.NewClient(cfg.DeviceIP, cfg.DevicePort, cfg.AppPackage, cfg.AppActivity, log.Named("adb"))

	devices, err := dev.ListDevices(context.Background())
	if err != nil {
		return outputErrorCommon(globals, "LIST_FAILED", err.Error())
	}

	if globals.Format == "json" {
		encoder := json.NewEncoder(globals.Stdout)
		for _, d := range devices {
			if err := encoder.Encode(d); err != nil {
				return err
			}
		}
		return nil
	}
	return c.outputText(globals, devices)
}

func (c *DevicesCmd) outputText(globals *Globals, devices []domain.DeviceInfo) error {
	if len(devices) == 0 {
		fmt.Fprintln(globals.Stdout, "No devices found")
		return nil
	}

	table := tablewriter.NewTable(globals.Stdout)
	table.Header("ID", "STATE", "CONFIGURED")
	for _, d := range devices {
		configured := ""
		if d.ID == globals.Config.DeviceID() {
			configured = "*"
		}
		table.Append(d.ID, d.State, configured)
	}
	if err := table.Render(); err != nil {
		return err
	}

	online := 0
	for _, d := range devices {
		if d.IsOnline() {
			online++
		}
	}
	fmt.Fprintf(globals.Stdout, "\n%d device(s), %d online\n", len(devices), online)
	return nil
}
