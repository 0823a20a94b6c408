package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StageComplete ends the loading animation.
const StageComplete = "complete"

var logo = []string{
	"     _                     _              _ ",
	"  __| | ___  ___ ___ _ __ | |_       ___ (_)",
	" / _` |/ _ \\/ __/ _ \\ '_ \\| __|____ / __|| |",
	"| (_| |  __/ (_|  __/ | | | ||_____| (__ | |",
	" \\__,_|\\___|\\___\\___|_| |_|\\__|      \\___||_|",
}

// Light (top) to dark (bottom).
var logoGradientColors = []string{"#5DADE2", "#3498DB", "#2E86C1", "#2874A6", "#21618C"}

// ProgressMsg sets the stage shown under the logo.
type ProgressMsg struct {
	Stage string
}

// ProgressModel is the screen shown while the list is empty.
type ProgressModel struct {
	spinner spinner.Model
	stage   string
	done    bool
}

// NewProgressModel creates a loading screen.
func NewProgressModel() ProgressModel {
	return ProgressModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))),
		),
	}
}

// Tick starts the spinner.
func (m ProgressModel) Tick() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.stage = msg.Stage
		m.done = msg.Stage == StageComplete
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	lines := make([]string, len(logo))
	for i, line := range logo {
		lines[i] = lipgloss.NewStyle().
			Foreground(lipgloss.Color(logoGradientColors[i%len(logoGradientColors)])).
			Bold(true).
			Render(line)
	}
	banner := strings.Join(lines, "\n")

	if m.done {
		status := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✓ No results yet. Press (r) to refresh")
		return lipgloss.JoinVertical(lipgloss.Center, banner, "", status)
	}

	stage := m.stage
	if stage == "" {
		stage = "Loading results"
	}
	return lipgloss.JoinVertical(lipgloss.Center, banner, "", m.spinner.View()+" "+stage+"...")
}
