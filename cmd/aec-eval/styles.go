package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#A40000") // Error red
	successColor = lipgloss.Color("#00AA00") // Pass green
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
)

// styles renders for one output writer so colour is only emitted on
// terminals.
type styles struct {
	title lipgloss.Style
	err   lipgloss.Style
	key   lipgloss.Style
	value lipgloss.Style
	pass  lipgloss.Style
	fail  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(primaryColor),
		err:   r.NewStyle().Bold(true).Foreground(primaryColor),
		key:   r.NewStyle().Foreground(mutedColor),
		value: r.NewStyle().Bold(true).Foreground(textColor),
		pass:  r.NewStyle().Bold(true).Foreground(successColor),
		fail:  r.NewStyle().Bold(true).Foreground(primaryColor),
	}
}

// printError prints an error message.
func printError(w io.Writer, message string) {
	s := newStyles(w)
	_, _ = fmt.Fprintf(w, "%s %s\n", s.err.Render("Error:"), message)
}
