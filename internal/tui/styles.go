package tui

import "github.com/charmbracelet/lipgloss"

// Row states shown in the STATUS column.
const (
	StatusPending    = "pending"
	StatusChecking   = "checking"
	StatusInstalling = "installing"
	StatusAvailable  = "available"
	StatusInstalled  = "installed"
	StatusFailed     = "failed"
)

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// TitleStyle styles headings above tables and prompts.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))

	// SuccessStyle and ErrorStyle style one-line outcome messages.
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	// HintStyle styles secondary text such as install suggestions.
	HintStyle = lipgloss.NewStyle().Faint(true)

	statusStyles = map[string]lipgloss.Style{
		StatusAvailable:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusInstalled:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusChecking:   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		StatusInstalling: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"missing":        lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		StatusPending:    lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
