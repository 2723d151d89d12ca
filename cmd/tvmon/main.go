package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/webviewer/tvmon/internal/cli"
	"github.com/webviewer/tvmon/internal/config"
)

func main() {
	var c cli.CLI

	ctx := kong.Parse(&c,
		kong.Name("tvmon"),
		kong.Description("Fire TV app monitor: watches logcat and device health for the WebViewer app, and applies automatic fixes.\n\nSTART HERE: tvmon monitor"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)

	var (
		cfg *config.Config
		err error
	)
	if c.Config != "" {
		cfg, err = config.LoadFromFile(c.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	globals := cli.NewGlobals(&c, cfg)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}
