package report

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Semantic colors, shared by light and dark terminals.
var (
	Destructive = lipgloss.Color("#e53935") // Red
	Success     = lipgloss.Color("#8BC34A") // Lime Green
	Warning     = lipgloss.Color("#FFC107") // Yellow
	Info        = lipgloss.Color("#2196F3") // Blue
	MutedLight  = lipgloss.Color("#6a737d")
	MutedDark   = lipgloss.Color("#8b949e")
)

// Styles holds the styled components used by the text report.
type Styles struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Location lipgloss.Style
	Rule     lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Info     lipgloss.Style
}

// NewStyles builds styles bound to a renderer for w. With color off
// every style renders plain text.
func NewStyles(w io.Writer, color bool) Styles {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	muted := lipgloss.AdaptiveColor{Light: string(MutedLight), Dark: string(MutedDark)}

	return Styles{
		Title:    r.NewStyle().Bold(true),
		Muted:    r.NewStyle().Foreground(muted),
		Location: r.NewStyle().Underline(color),
		Rule:     r.NewStyle().Foreground(muted).Italic(color),
		Success:  r.NewStyle().Foreground(Success).Bold(true),
		Error:    r.NewStyle().Foreground(Destructive).Bold(true),
		Warning:  r.NewStyle().Foreground(Warning).Bold(true),
		Info:     r.NewStyle().Foreground(Info),
	}
}

// ColorEnabled resolves a color mode ("auto", "always", "never") for w.
// In auto mode color is used only when w is a terminal.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DarkBackground reports whether the terminal has a dark background.
// Used to pick the glamour style for markdown output.
func DarkBackground() bool {
	return termenv.HasDarkBackground()
}
