// Package output renders clicker results for the terminal.
//
// Rendering functions return plain strings. Styling is applied only when
// stdout is a terminal and NO_COLOR is unset, so output stays stable in
// pipes and tests.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	methodStyles = map[string]lipgloss.Style{
		"DETECTED": lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
		"MANUAL":   lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		"HOTKEY":   lipgloss.NewStyle().Foreground(lipgloss.Color("201")),
		"IMPORTED": lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
	}
)

// IsColorEnabled returns true if styled output should be emitted.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func paint(style lipgloss.Style, text string) string {
	if IsColorEnabled() {
		return style.Render(text)
	}
	return text
}

func methodStyle(method string) lipgloss.Style {
	if s, ok := methodStyles[method]; ok {
		return s
	}
	return dimStyle
}
