// Package diagnostic defines the normalized representation of tool messages
// and test outcomes shared by the classifiers, the engines and the reports.
package diagnostic

import (
	"cmp"
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Severity is the normalized level of a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityUnknown Severity = "unknown"
)

// compareLength is how much of Text takes part in ordering. Archived
// results were deduplicated with this prefix length, so messages that only
// differ after it collapse into one entry.
const compareLength = 11

// SeverityFrom derives a Severity from a free-form tool token.
func SeverityFrom(token string) Severity {
	lower := strings.ToLower(token)
	switch {
	case strings.Contains(lower, "err"):
		return SeverityError
	case strings.Contains(lower, "warn"):
		return SeverityWarning
	case strings.Contains(lower, "info"), strings.Contains(lower, "note"):
		return SeverityInfo
	default:
		return SeverityUnknown
	}
}

// IsInformational reports whether a raw severity token names an info or
// note message. Compiler classifiers drop those lines.
func IsInformational(token string) bool {
	lower := strings.ToLower(strings.TrimSpace(token))
	return strings.Contains(lower, "info") || strings.Contains(lower, "note")
}

// Diagnostic is a single classified compiler or tool message.
type Diagnostic struct {
	File     string   `json:"file" yaml:"file"`
	Line     uint     `json:"line" yaml:"line"`
	Column   uint     `json:"column" yaml:"column"`
	Severity Severity `json:"severity" yaml:"severity"`
	Text     string   `json:"message" yaml:"message"`
}

// New builds a Diagnostic from parsed integer positions. Negative or
// unparsable positions become zero.
func New(file string, line, column int, severity Severity, text string) Diagnostic {
	return Diagnostic{
		File:     file,
		Line:     toUint(line),
		Column:   toUint(column),
		Severity: severity,
		Text:     text,
	}
}

func toUint(v int) uint {
	u, err := safecast.Conv[uint](v)
	if err != nil {
		return 0
	}
	return u
}

func (d Diagnostic) comparableText() string {
	if len(d.Text) > compareLength {
		return d.Text[:compareLength]
	}
	return d.Text
}

// Compare orders diagnostics by file, line, column, severity and the
// leading characters of the text.
func Compare(a, b Diagnostic) int {
	if c := cmp.Compare(a.File, b.File); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Line, b.Line); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Column, b.Column); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Severity, b.Severity); c != 0 {
		return c
	}
	return cmp.Compare(a.comparableText(), b.comparableText())
}

// Equal reports whether a and b collapse into one entry of a Set.
func Equal(a, b Diagnostic) bool {
	return Compare(a, b) == 0
}

// Location renders "file:line:column" omitting zero positions.
func (d Diagnostic) Location() string {
	switch {
	case d.Line == 0:
		return d.File
	case d.Column == 0:
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
	}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Location(), d.Severity, d.Text)
}
