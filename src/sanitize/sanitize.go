// Package sanitize cleans captured tool output before it is classified.
// Invalid byte sequences are replaced with U+FFFD and terminal escape
// sequences are removed, so classifiers only ever see valid UTF-8 text.
package sanitize

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ValidUTF8 replaces every ill-formed byte sequence with the replacement
// character.
func ValidUTF8(b []byte) string {
	out, _, err := transform.Bytes(runes.ReplaceIllFormed(), b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// StripANSI removes ANSI escape codes.
func StripANSI(s string) string {
	if !strings.ContainsRune(s, '\x1b') {
		return s
	}
	return ansi.Strip(s)
}

// Text prepares raw process output for classification.
func Text(b []byte) string {
	s := ValidUTF8(b)
	s = StripANSI(s)
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// String is Text for already-decoded strings whose bytes may still be invalid.
func String(s string) string {
	return Text([]byte(s))
}

// Lines splits sanitized text into lines without the trailing empty element.
func Lines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
