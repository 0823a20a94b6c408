package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"decent-ci/src/diagnostic"
	"decent-ci/src/ranking"
	"decent-ci/src/sanitize"
)

const (
	detailDiagnosticLimit = 20
	detailOutputLines     = 8
)

// renderDetail renders the detail content for a result.
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	content := strings.Builder{}
	doc := item.Entry.Document
	fm := doc.FrontMatter

	label := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Bold(true)
	faint := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true)
	errorStyle := lipgloss.NewStyle().Foreground(m.styles.Failed)
	warnStyle := lipgloss.NewStyle().Foreground(m.styles.Warning)

	line := func(style lipgloss.Style, text string) {
		fmt.Fprintln(&content, style.Render(Wrap(text, maxWidth)))
	}

	status := m.styles.StatusStyle(item.Status(), item.Pending()).Render(strings.ToUpper(statusLabel(item)))
	fmt.Fprintf(&content, "%s %s\n", status, lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true).
		Render(Truncate(fm.Repository+" "+item.Ref(), maxWidth-VisualWidth(statusLabel(item))-1, true)))
	line(faint, fmt.Sprintf("Commit %s on %s", fm.CommitSHA, fm.DeviceID))
	line(faint, fm.Date.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintln(&content)
	line(lipgloss.NewStyle().Foreground(m.styles.TextPrimary), fm.Summary.Description(fm.Pending))

	s := fm.Summary
	line(faint, fmt.Sprintf("Build: %d errors, %d warnings · Tests: %d/%d passed (%.1f%%)",
		s.BuildErrors+s.PackageErrors, s.BuildWarnings+s.PackageWarnings, s.TestPassed, s.TestCount, s.TestPercent))
	if s.CoverageStatus != "" && s.CoverageStatus != "skipped" {
		line(faint, fmt.Sprintf("Coverage: %.1f%% lines, %.1f%% functions", s.CoverageLines, s.CoverageFunctions))
	}

	if fm.Unhandled != "" {
		fmt.Fprintln(&content)
		line(label, "Unhandled failure:")
		line(errorStyle, sanitize.String(fm.Unhandled))
	}

	diags := append(append([]diagnostic.Diagnostic{}, doc.Body.BuildResults...), doc.Body.PackageResults...)
	ranked, dropped := ranking.Limit(ranking.Rank(diags).FlattenByTier(), detailDiagnosticLimit)
	if len(ranked) > 0 {
		fmt.Fprintln(&content)
		line(label, "Messages:")
		for _, r := range ranked {
			d := r.Diagnostic
			style := faint
			switch r.Tier {
			case ranking.TierError:
				style = errorStyle
			case ranking.TierWarning:
				style = warnStyle
			}
			text := fmt.Sprintf("%s:%d: %s", d.File, d.Line, sanitize.String(d.Text))
			if r.Count > 1 {
				text += fmt.Sprintf(" (x%d)", r.Count)
			}
			line(style, text)
		}
		if dropped > 0 {
			line(faint, fmt.Sprintf("... and %d more", dropped))
		}
	}

	var failed []diagnostic.TestOutcome
	for _, t := range doc.Body.TestResults {
		if !t.Passed() && t.Status != diagnostic.TestNotRun {
			failed = append(failed, t)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(&content)
		line(label, "Failed tests:")
		for _, t := range failed {
			line(errorStyle, fmt.Sprintf("%s (%s)", t.Name, t.Status))
			out := sanitize.Lines(sanitize.String(t.Output))
			if len(out) > detailOutputLines {
				out = out[len(out)-detailOutputLines:]
			}
			for _, o := range out {
				if strings.TrimSpace(o) != "" {
					line(faint, "  "+o)
				}
			}
		}
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	// 1 char padding on each side
	maxWidth := m.detailViewport.Width - 2
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	borderStyle := m.styles.BorderColor
	if m.detailFocused {
		borderStyle = m.styles.AccentBlue
	}

	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		headerRow := lipgloss.NewStyle().
			Foreground(m.styles.PrimaryBlue).
			Bold(true).
			Padding(0, 1).
			Render(Truncate(selectedItem.Entry.Path, width-2, true))

		return lipgloss.JoinVertical(lipgloss.Left, headerRow,
			lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(borderStyle).
				Width(width-2).
				Height(height).
				Render(m.detailViewport.View()))
	}

	placeholderRow := lipgloss.NewStyle().
		Foreground(m.styles.TextSecondary).
		Padding(0, 1).
		Render(" ")

	emptyStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.BorderColor).
		Width(width-2).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(m.styles.TextSecondary).
		Faint(true)

	return lipgloss.JoinVertical(lipgloss.Left, placeholderRow, emptyStyle.Render("No results match"))
}
