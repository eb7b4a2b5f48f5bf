package style

import "github.com/charmbracelet/lipgloss"

// Bold and Dim are the two shared text styles for the CLI's table
// renderer and plain status lines.
var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	// Badge styles for feed-style NEW/UPDATE markers. No command in
	// internal/cmd prints them.
	NewBadge    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	UpdateBadge = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	ErrorText   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
