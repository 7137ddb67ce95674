package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette.
var (
	colorMuted  = lipgloss.Color("#667085")
	colorDim    = lipgloss.Color("#98A2B3")
	colorGreen  = lipgloss.Color("#22A06B")
	colorRed    = lipgloss.Color("#D93025")
	colorYellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	iconCheck   = "✓"
	iconCross   = "✗"
	iconWarning = "!"
	iconDot     = "·"
)

// colorProfile returns Ascii when NO_COLOR is set and the detected profile otherwise.
func colorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

func newOutput(w io.Writer) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	return termenv.NewOutput(w, termenv.WithProfile(colorProfile()), termenv.WithTTY(true))
}
