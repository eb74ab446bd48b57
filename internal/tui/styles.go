package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the monitor.
var styles = struct {
	Title   lipgloss.Style
	Spinner lipgloss.Style
	Current lipgloss.Style
	Detail  lipgloss.Style
	Stats   lipgloss.Style
	Footer  lipgloss.Style

	// Event log styles by state
	Queued    lipgloss.Style
	Executing lipgloss.Style
	Completed lipgloss.Style
	Cancelled lipgloss.Style
	Failed    lipgloss.Style
	Queue     lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	Spinner: lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")),

	Current: lipgloss.NewStyle().
		Bold(true),

	Detail: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Stats: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	Queued: lipgloss.NewStyle().
		Foreground(lipgloss.Color("248")),

	Executing: lipgloss.NewStyle().
		Foreground(lipgloss.Color("75")),

	Completed: lipgloss.NewStyle().
		Foreground(lipgloss.Color("78")),

	Cancelled: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	Failed: lipgloss.NewStyle().
		Foreground(lipgloss.Color("203")),

	Queue: lipgloss.NewStyle().
		Foreground(lipgloss.Color("147")),
}
