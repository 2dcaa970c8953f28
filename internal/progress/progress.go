// Package progress draws a single-line console progress bar for the frame
// loop.
package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	barLength    = 50
	percentScale = 100
)

var (
	countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	barStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AA00"))
)

// Reporter redraws the bar in place with a carriage return.
type Reporter struct {
	w           io.Writer
	total       int
	enabled     bool
	drawn       bool
	lastPercent int
}

// New creates a reporter for total frames. A disabled reporter or one with
// no frames writes nothing.
func New(w io.Writer, total int, enabled bool) *Reporter {
	return &Reporter{
		w:       w,
		total:   total,
		enabled: enabled && w != nil && total > 0,
	}
}

// Update redraws the bar when the whole percentage has changed since the
// last draw.
func (r *Reporter) Update(current int) {
	if !r.enabled {
		return
	}
	current = min(max(current, 0), r.total)
	percent := current * percentScale / r.total
	if r.drawn && percent == r.lastPercent {
		return
	}
	r.drawn = true
	r.lastPercent = percent
	_, _ = fmt.Fprint(r.w, "\r"+Line(current, r.total))
}

// Done ends the progress line.
func (r *Reporter) Done() {
	if r.enabled && r.drawn {
		_, _ = fmt.Fprintln(r.w)
	}
}

// Line renders one bar: "current/total    pct% |====>    |".
func Line(current, total int) string {
	if total <= 0 {
		return ""
	}
	percent := current * percentScale / total
	filled := percent * barLength / percentScale
	bar := "|" + strings.Repeat("=", filled) + ">" + strings.Repeat(" ", barLength-filled) + "|"
	return fmt.Sprintf("        %s    %3d%% %s",
		countStyle.Render(fmt.Sprintf("%d/%d", current, total)), percent, barStyle.Render(bar))
}
