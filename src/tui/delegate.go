package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	listRenderingOverhead = 10

	statusWidth = 7 // "warning"
	testsWidth  = 9 // "9999/9999"

	maxRefWidth = 24
)

// Delegate renders results as table rows.
type Delegate struct {
	RankWidth int
	RefWidth  int
	styles    *StyleConfig
}

// NewDelegate creates a delegate with default styles.
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		RankWidth: 2,
		RefWidth:  4,
		styles:    styles,
	}
}

// SetColumnWidths sizes the rank and ref columns for the given maxima.
func (d *Delegate) SetColumnWidths(maxRank, maxRef int) {
	d.RankWidth = max(2, len(fmt.Sprintf("%d", maxRank)))
	d.RefWidth = min(maxRefWidth, max(4, maxRef))
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// statusLabel is the short status column text.
func statusLabel(item Item) string {
	if item.Pending() {
		return "pending"
	}
	if s := string(item.Status()); s != "" {
		return s
	}
	return "unknown"
}

func testsLabel(item Item) string {
	s := item.Entry.Document.FrontMatter.Summary
	if s.TestCount == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", s.TestPassed, s.TestCount)
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	rankCol := fmt.Sprintf("%*d", d.RankWidth, entry.Rank)
	statusCol := d.styles.StatusStyle(entry.Status(), entry.Pending()).
		Render(TruncateAndPad(statusLabel(entry), statusWidth, false))
	testsCol := fmt.Sprintf("%*s", testsWidth, testsLabel(entry))
	refCol := TruncateAndPad(entry.Ref(), d.RefWidth, true)

	// rank + status + tests + ref + separators (12)
	fixedWidth := d.RankWidth + statusWidth + testsWidth + d.RefWidth + 12
	availableWidth := m.Width() - fixedWidth - listRenderingOverhead

	var device string
	if availableWidth > 0 {
		device = TruncateAndPad(entry.DeviceID(), availableWidth, true)
	}

	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	if isSelected {
		style = style.Bold(true).Foreground(d.styles.PrimaryBlue).Background(d.styles.SelectedColor)
	}

	line := style.Render(rankCol+" │ ") + statusCol +
		style.Render(fmt.Sprintf(" │ %s │ %s │ %s", testsCol, refCol, device))
	// Narrow panels drop the right-hand columns.
	fmt.Fprint(w, Truncate(line, m.Width(), false))
}
