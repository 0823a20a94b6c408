package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderListPanel renders the left panel with the results list.
func (m MainModel) renderListPanel(width, height int) string {
	listPanel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.BorderColor).
		Width(width - 2).
		Height(height).
		Render(m.listView.Render())

	delegate := m.listView.GetDelegate()
	headerText := fmt.Sprintf("%*s │ %-*s │ %*s │ %-*s │ Device",
		delegate.RankWidth, "#",
		statusWidth, "Status",
		testsWidth, "Tests",
		delegate.RefWidth, "Ref")
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(Truncate(headerText, width-4, true))

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, listPanel)
}
