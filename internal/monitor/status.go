package monitor

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lookaway/internal/gaze"
)

var (
	forwardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")).Bold(true)
	awayStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#74c7ec"))
)

// RenderStatus formats a frame as a single terminal line.
func RenderStatus(f Frame) string {
	var looking string
	switch {
	case !f.Found:
		looking = mutedStyle.Render("No face")
	case f.Looking == gaze.Forward:
		looking = forwardStyle.Render("Looking Forward")
	default:
		looking = awayStyle.Render("Looking " + capitalize(f.Looking.String()))
	}

	counts := countStyle.Render(fmt.Sprintf("left %d  right %d  total %d",
		f.State.LeftCount, f.State.RightCount, f.State.TotalCount))
	return lipgloss.JoinHorizontal(lipgloss.Top, looking, mutedStyle.Render("  |  "), counts)
}

// StatusLine redraws the status in place on a terminal.
type StatusLine struct {
	w    io.Writer
	last string
}

func NewStatusLine(w io.Writer) *StatusLine {
	return &StatusLine{w: w}
}

// Update redraws only when the rendered line changed.
func (s *StatusLine) Update(f Frame) {
	line := RenderStatus(f)
	if line == s.last {
		return
	}
	s.last = line
	fmt.Fprintf(s.w, "\r\033[K%s", line)
}

// Done ends the status line.
func (s *StatusLine) Done() {
	if s.last != "" {
		fmt.Fprintln(s.w)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
