package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/webviewer/tvmon/internal/config"
)

// CLI is the root command structure for the Fire TV monitor.
type CLI struct {
	// Global flags
	Format  string `short:"f" default:"text" enum:"text,json" help:"Output format"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`
	Verbose bool   `short:"v" help:"Show debug output"`
	Config  string `short:"c" type:"path" help:"Path to configuration file"`

	// Commands
	Monitor MonitorCmd `cmd:"" default:"withargs" help:"Run the monitoring loop"`
	Status  StatusCmd  `cmd:"" help:"Show the latest monitoring report"`
	Devices DevicesCmd `cmd:"" help:"List connected adb devices"`
	Fix     FixCmd     `cmd:"" help:"Run a single remediation manually"`
	Report  ReportCmd  `cmd:"" help:"Print the monitoring report document"`
	Install InstallCmd `cmd:"" help:"Install an APK on the device"`
	Conf    ConfigCmd  `cmd:"" name:"config" help:"Show or manage configuration"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// Globals holds shared state for all commands.
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
}

// NewGlobals creates a Globals instance from CLI flags and loaded config.
func NewGlobals(cli *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Globals{
		Format:  cli.Format,
		Quiet:   cli.Quiet,
		Verbose: cli.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}
}

// Debug prints a debug message if verbose mode is enabled.
func (g *Globals) Debug(format string, args ...interface{}) {
	if g.Verbose {
		fmt.Fprintf(g.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// VersionCmd shows version information.
type VersionCmd struct{}

// Run executes the version command.
func (v *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "json" {
		io.WriteString(globals.Stdout, `{"type":"version","version":"`+Version+`","commit":"`+Commit+`"}`+"\n")
	} else {
		io.WriteString(globals.Stdout, "tvmon version "+Version+" ("+Commit+")\n")
	}
	return nil
}

// Version information (set at build time)
var (
	Version = "dev"
	Commit  = "none"
)
