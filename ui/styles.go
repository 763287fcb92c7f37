package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor    = lipgloss.Color("7")
	accentColor = lipgloss.Color("12")
	userColor   = lipgloss.Color("10")
	dangerColor = lipgloss.Color("9")
	timingColor = lipgloss.Color("13")

	// User message style
	UserStyle = lipgloss.NewStyle().
			Foreground(userColor).
			Bold(true)

	// Assistant message style
	AssistantStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// System/secondary text style
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	// Title style
	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	// Error banner style
	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true)

	// Timing annotation on completed assistant messages
	TimingStyle = lipgloss.NewStyle().
			Foreground(timingColor)

	StatusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// FormatFooter formats a footer string with alternating keys and
// descriptions. Keys stay default color, descriptions are accented.
// Usage: FormatFooter("Enter", "Send", "Ctrl+E", "Export")
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	var result []string
	for i := 0; i+1 < len(parts); i += 2 {
		result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
	}
	return strings.Join(result, "  ")
}
