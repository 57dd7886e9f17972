package tui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle styles the line above the bar.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// CountStyle styles the current/total counter.
	CountStyle = lipgloss.NewStyle().Faint(true)

	// SuccessStyle styles completion messages.
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// ErrorStyle styles fatal errors.
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	// SpinnerStyle styles the spinner shown while the total is unknown.
	SpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)
