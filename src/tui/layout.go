package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// header + help line (1) + panel column header row (1) + panel borders (2)
	availableHeight := max(1, m.height-headerHeight-1-1-2)

	// Results list (45%) | Detail (55%)
	leftPanelWidth := int(float64(m.width) * 0.45)
	rightPanelWidth := m.width - leftPanelWidth

	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  leftPanelWidth,
		rightPanelWidth: rightPanelWidth,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)

	if m.status == StatusLoading || len(m.items) == 0 {
		centeredProgress := lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render(m.progress.View())
		return lipgloss.JoinVertical(lipgloss.Left, header, centeredProgress, m.renderHelpText())
	}

	dims := m.calculateDimensions()
	leftPanel := m.renderListPanel(dims.leftPanelWidth, dims.availableHeight)
	rightPanel := m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight)
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, m.renderHelpText())
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sepStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)

	var helpText string
	switch {
	case m.err != nil:
		helpText = lipgloss.NewStyle().Foreground(m.styles.Failed).Render(fmt.Sprintf("Error: %v", m.err)) +
			fmt.Sprintf(" %s %s: Retry %s %s: Quit", sepStyle.Render("•"), keyStyle.Render("r"), sepStyle.Render("•"), keyStyle.Render("q"))
	case m.detailFocused:
		helpText = fmt.Sprintf("%s: Scroll %s %s: Back %s %s: Quit",
			keyStyle.Render("j/k"), sepStyle.Render("•"),
			keyStyle.Render("Esc"), sepStyle.Render("•"),
			keyStyle.Render("q"))
	default:
		helpText = fmt.Sprintf("%s: Nav %s %s: All/Failing/Passing %s %s: View %s %s: Repo %s %s %s %s %s",
			keyStyle.Render("j/k"), sepStyle.Render("•"),
			keyStyle.Render("0/1/2"), sepStyle.Render("•"),
			keyStyle.Render("Enter"), sepStyle.Render("•"),
			keyStyle.Render("Tab"), sepStyle.Render("•"),
			keyStyle.Render("/"), keyStyle.Render("r"), sepStyle.Render("•"), keyStyle.Render("q"))
	}

	return m.styles.HelpStyle().Render(Truncate(helpText, max(0, m.width-4), true))
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	// inside the panel borders
	m.listView.SetSize(dims.leftPanelWidth-2, dims.availableHeight)

	// inside the borders
	m.detailViewport.Width = dims.rightPanelWidth - 2
	m.detailViewport.Height = dims.availableHeight

	if item, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(item)
	}
}
