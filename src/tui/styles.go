package tui

import (
	"github.com/charmbracelet/lipgloss"

	"decent-ci/src/results"
)

// StyleConfig holds the colors of the results viewer.
type StyleConfig struct {
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	Passed  lipgloss.Color
	Warning lipgloss.Color
	Failed  lipgloss.Color
	Pending lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),

		Passed:  lipgloss.Color("#34A853"),
		Warning: lipgloss.Color("#FBBC04"),
		Failed:  lipgloss.Color("#EA4335"),
		Pending: lipgloss.Color("#9AA0A6"),
	}
}

// StatusColor is the color of a result status. Pending results are grey
// whatever their partial status.
func (s *StyleConfig) StatusColor(status results.Status, pending bool) lipgloss.Color {
	if pending {
		return s.Pending
	}
	switch status {
	case results.StatusPassed:
		return s.Passed
	case results.StatusWarning:
		return s.Warning
	case results.StatusFailed:
		return s.Failed
	default:
		return s.Pending
	}
}

// StatusStyle renders status text in its color.
func (s *StyleConfig) StatusStyle(status results.Status, pending bool) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.StatusColor(status, pending)).Bold(true)
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}
