package cli

import (
	"encoding/json"
	"errors"
	"fmt"
)

// outputErrorCommon normalizes error emission across commands, respecting
// json vs text formats so scripted callers always get machine-readable
// failures.
func outputErrorCommon(globals *Globals, code, message string) error {
	if globals != nil && globals.Format == "json" {
		payload := map[string]string{"type": "error", "code": code, "message": message}
		_ = json.NewEncoder(globals.Stdout).Encode(payload)
	} else if globals != nil {
		fmt.Fprintf(globals.Stderr, "Error [%s]: %s\n", code, message)
	}
	return errors.New(message)
}
