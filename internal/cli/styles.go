package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles groups the lipgloss styles used by the text renderers.
type Styles struct {
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
}

// DefaultStyles is the stock color scheme.
var DefaultStyles = Styles{
	Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Value:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

// PlainStyles renders without color for pipes and files.
var PlainStyles = Styles{
	Header:  lipgloss.NewStyle(),
	Label:   lipgloss.NewStyle(),
	Value:   lipgloss.NewStyle(),
	Success: lipgloss.NewStyle(),
	Warning: lipgloss.NewStyle(),
	Danger:  lipgloss.NewStyle(),
}

// stylesFor picks colored or plain styles based on whether stdout is a
// terminal.
func stylesFor(globals *Globals) Styles {
	if f, ok := globals.Stdout.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return DefaultStyles
		}
	}
	return PlainStyles
}
