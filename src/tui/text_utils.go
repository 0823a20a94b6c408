package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of plain text, accounting for
// multi-byte characters.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate truncates text to maxLen columns with optional ellipsis. Styled
// text keeps its escape sequences; they do not count towards the width.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}

	if ansi.StringWidth(s) > maxLen {
		if ellipsis && maxLen > 3 {
			return ansi.Truncate(s, maxLen-3, "") + "..."
		}
		return ansi.Truncate(s, maxLen, "")
	}
	return s
}

// TruncateAndPad truncates text with optional ellipsis and pads to exact width
// Used for table cells to maintain consistent column widths
func TruncateAndPad(s string, width int, ellipsis bool) string {
	s = Truncate(s, width, ellipsis)
	visualWidth := ansi.StringWidth(s)
	if visualWidth < width {
		return s + strings.Repeat(" ", width-visualWidth)
	}
	return s
}

// Wrap wraps text to width columns, breaking at spaces. Words wider than
// width are split; existing line breaks are kept.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = ansi.Wrap(strings.TrimRight(line, " "), width, "")
	}
	return strings.Join(lines, "\n")
}
