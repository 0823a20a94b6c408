package results

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"decent-ci/src/diagnostic"
	"decent-ci/src/ranking"
)

// maxMessageWidth caps a diagnostic message in the comment.
const maxMessageWidth = 120

// maxAnnotationGroups caps the annotation summary in the comment.
const maxAnnotationGroups = 10

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func testLine(s Summary) string {
	return fmt.Sprintf("%d of %d tests passed (%.2f%%)", s.TestPassed, s.TestCount, s.TestPercent)
}

// Comment renders the Markdown comment for a final report. At most limit
// diagnostics are listed; limit <= 0 uses ranking.DefaultLimit.
func Comment(doc Document, limit int) string {
	if limit <= 0 {
		limit = ranking.DefaultLimit
	}
	fm := doc.FrontMatter
	s := fm.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s: %s\n\n", statusIcon(s.Status), fm.DeviceID, s.Description(false))

	rows := [][]string{
		{"Phase", "Result", "Details"},
		{"Build", phaseResult(s.BuildErrors > 0, s.BuildWarnings > 0), fmt.Sprintf("%s, %s", pluralize(s.BuildErrors, "error"), pluralize(s.BuildWarnings, "warning"))},
	}
	if len(fm.Packages) > 0 || s.PackageErrors > 0 || s.PackageWarnings > 0 {
		rows = append(rows, []string{"Package", phaseResult(s.PackageErrors > 0, s.PackageWarnings > 0), pluralize(len(fm.Packages), "package")})
	}
	if s.TestStatus != StatusSkipped {
		rows = append(rows, []string{"Test", string(s.TestStatus), testLine(s)})
	}
	if s.CoverageStatus != StatusSkipped {
		rows = append(rows, []string{"Coverage", string(s.CoverageStatus), fmt.Sprintf("lines %.1f%%, functions %.1f%%", s.CoverageLines, s.CoverageFunctions)})
	}
	if s.UnhandledFailure {
		rows = append(rows, []string{"Unhandled", string(StatusFailed), firstLine(fm.Unhandled)})
	}
	writeTable(&b, rows)

	all := append(append([]diagnostic.Diagnostic{}, doc.Body.BuildResults...), doc.Body.PackageResults...)
	ranked, dropped := ranking.Limit(ranking.Rank(all).FlattenByTier(), limit)
	if len(ranked) > 0 {
		b.WriteString("\n### Diagnostics\n")
		for _, group := range ranking.GroupByFile(ranked) {
			fmt.Fprintf(&b, "\n**%s**\n\n", orUnknown(group.File))
			for _, r := range group.Items {
				d := r.Diagnostic
				line := fmt.Sprintf("- %s `%s` %s", d.Severity, d.Location(), runewidth.Truncate(firstLine(d.Text), maxMessageWidth, "..."))
				if r.Count > 1 {
					line += fmt.Sprintf(" (x%d)", r.Count)
				}
				b.WriteString(line + "\n")
			}
		}
		if dropped > 0 {
			fmt.Fprintf(&b, "\n_%s not shown._\n", pluralize(dropped, "more diagnostic"))
		}
	}

	if failed := failedTests(doc.Body.TestResults); len(failed) > 0 {
		b.WriteString("\n### Failed tests\n\n")
		shown, rest := failed, 0
		if len(shown) > limit {
			shown, rest = failed[:limit], len(failed)-limit
		}
		for _, t := range shown {
			detail := t.FailureType
			if detail == "" {
				detail = string(t.Status)
			}
			fmt.Fprintf(&b, "- `%s` %s\n", t.Name, detail)
		}
		if rest > 0 {
			fmt.Fprintf(&b, "\n_%s not shown._\n", pluralize(rest, "more failed test"))
		}
	}

	if groups := doc.Body.AnnotationGroups; len(groups) > 0 {
		b.WriteString("\n### Test notes\n\n")
		for i, g := range groups {
			if i == maxAnnotationGroups {
				fmt.Fprintf(&b, "\n_%s not shown._\n", pluralize(len(groups)-i, "more note"))
				break
			}
			fmt.Fprintf(&b, "- %s (%s)\n", runewidth.Truncate(g.Example, maxMessageWidth, "..."), pluralize(len(g.Tests), "test"))
		}
	}

	if fm.CoverageURL != "" {
		fmt.Fprintf(&b, "\n[Coverage report](%s)\n", fm.CoverageURL)
	}
	for i, url := range fm.PackageURLs {
		name := url
		if i < len(fm.Packages) {
			name = fm.Packages[i]
		}
		fmt.Fprintf(&b, "\n[%s](%s)", name, url)
	}
	if len(fm.PackageURLs) > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}

// writeTable writes a Markdown table whose columns are padded to the widest
// cell, so the raw text lines up as well.
func writeTable(b *strings.Builder, rows [][]string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	writeRow := func(cells []string) {
		b.WriteString("|")
		for i, cell := range cells {
			b.WriteString(" " + runewidth.FillRight(cell, widths[i]) + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows[1:] {
		writeRow(row)
	}
}

func phaseResult(failed, warned bool) string {
	switch {
	case failed:
		return string(StatusFailed)
	case warned:
		return string(StatusWarning)
	default:
		return string(StatusPassed)
	}
}

func statusIcon(s Status) string {
	switch s {
	case StatusPassed:
		return ":white_check_mark:"
	case StatusWarning:
		return ":warning:"
	default:
		return ":x:"
	}
}

func failedTests(tests []diagnostic.TestOutcome) []diagnostic.TestOutcome {
	var out []diagnostic.TestOutcome
	for _, t := range tests {
		if t.Status == diagnostic.TestFailed {
			out = append(out, t)
		}
	}
	return out
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func orUnknown(file string) string {
	if file == "" {
		return "(unknown file)"
	}
	return file
}
