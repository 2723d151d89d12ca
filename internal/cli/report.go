package cli

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// ReportCmd prints the monitoring report document, optionally extracting
// a single field.
type ReportCmd struct {
	File  string `help:"Report file to read (defaults to the configured report_file)"`
	Field string `help:"Extract one field by path (e.g. statistics.current_status)"`
}

// Run executes the report command.
func (c *ReportCmd) Run(globals *Globals) error {
	path := c.File
	if path == "" {
		path = globals.Config.ReportFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return outputErrorCommon(globals, "NO_REPORT",
			fmt.Sprintf("cannot read report %s: %v (is the monitor running?)", path, err))
	}
	if !gjson.ValidBytes(data) {
		return outputErrorCommon(globals, "BAD_REPORT",
			fmt.Sprintf("report %s is not valid JSON", path))
	}

	if c.Field != "" {
		value := gjson.GetBytes(data, c.Field)
		if !value.Exists() {
			return outputErrorCommon(globals, "NO_SUCH_FIELD",
				fmt.Sprintf("field %q not present in report", c.Field))
		}
		fmt.Fprintln(globals.Stdout, value.String())
		return nil
	}

	_, err = globals.Stdout.Write(append(data, '\n'))
	return err
}
