// Package patterns normalizes build and test messages for grouping
// (recurrence) and for display (presentation).
//
// The same underlying patterns are used with different masking levels:
//   - MaskRecurrence: aggressive, masks numbers and paths so that the same
//     message from different tests or files collapses to one key
//   - MaskPresentation: conservative, keeps line numbers and file names
package patterns

import (
	"regexp"
	"sort"
	"strings"

	"decent-ci/src/diagnostic"
)

// MaskingLevel controls how aggressively messages are normalized.
type MaskingLevel int

const (
	// MaskPresentation preserves diagnostic details like line numbers.
	// Example: /home/ci/build/src/core/main.cpp:42 → .../main.cpp:42
	MaskPresentation MaskingLevel = iota

	// MaskRecurrence aggressively normalizes for grouping.
	// Example: 3 of 120 values differ → [NUM] of [NUM] values differ
	MaskRecurrence
)

var (
	// 2024-05-21T10:00:05.123Z, 2024-05-21 10:00:05,123
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}([.,]\d+)?(Z|[+-]\d{2}:?\d{2})?`)

	uuidPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

	// git SHAs, object hashes
	longHashPattern = regexp.MustCompile(`\b[a-f0-9]{12,}\b`)

	hexAddressPattern = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`)

	// Floats before integers so 1.5e-3 is one token.
	floatPattern  = regexp.MustCompile(`[-+]?\b\d+\.\d+(?:[eE][-+]?\d+)?\b`)
	numberPattern = regexp.MustCompile(`\b\d+\b`)

	// /a/b/c/file.cpp:12 and C:\a\b\c\file.cpp(12); filename and location
	// are captured for presentation.
	unixPathPattern    = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)
	windowsPathPattern = regexp.MustCompile(`\b[A-Za-z]:\\(?:[^\\\s]+\\){2,}([^\\\s(:]+(?:\(\d+(?:,\d+)?\))?)`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize applies pattern normalization to a single message.
func Normalize(line string, level MaskingLevel) string {
	switch level {
	case MaskPresentation:
		line = stripLeadingTimestamp(line)
		line = uuidPattern.ReplaceAllString(line, "<UUID>")
		line = hexAddressPattern.ReplaceAllString(line, "<HEX>")
		line = unixPathPattern.ReplaceAllString(line, ".../$1")
		line = windowsPathPattern.ReplaceAllString(line, `...\$1`)
		line = longHashPattern.ReplaceAllString(line, "<HASH>")
	case MaskRecurrence:
		line = timestampPattern.ReplaceAllString(line, "[TIMESTAMP]")
		line = uuidPattern.ReplaceAllString(line, "[UUID]")
		line = hexAddressPattern.ReplaceAllString(line, "[HEX]")
		line = unixPathPattern.ReplaceAllString(line, "[PATH]")
		line = windowsPathPattern.ReplaceAllString(line, "[PATH]")
		line = longHashPattern.ReplaceAllString(line, "[HASH]")
		line = floatPattern.ReplaceAllString(line, "[NUM]")
		line = numberPattern.ReplaceAllString(line, "[NUM]")
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
}

// Key is the recurrence key of a message.
func Key(msg string) string {
	return Normalize(msg, MaskRecurrence)
}

func stripLeadingTimestamp(line string) string {
	if loc := timestampPattern.FindStringIndex(line); loc != nil && loc[0] < 5 {
		return strings.TrimSpace(line[loc[1]:])
	}
	return line
}

// AnnotationGroup is a set of test annotations sharing one recurrence key.
type AnnotationGroup struct {
	Key     string   `json:"key"`
	Example string   `json:"example"`
	Tests   []string `json:"tests"`
}

// GroupAnnotations buckets annotations by recurrence key. Groups are
// ordered by size (largest first) then key; test names are unique and
// sorted within a group.
func GroupAnnotations(annotations []diagnostic.TestAnnotation) []AnnotationGroup {
	index := map[string]int{}
	var groups []AnnotationGroup
	seen := map[string]map[string]bool{}

	for _, a := range annotations {
		key := Key(a.Message)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, AnnotationGroup{Key: key, Example: Normalize(a.Message, MaskPresentation)})
			seen[key] = map[string]bool{}
		}
		if !seen[key][a.TestName] {
			seen[key][a.TestName] = true
			groups[i].Tests = append(groups[i].Tests, a.TestName)
		}
	}

	for i := range groups {
		sort.Strings(groups[i].Tests)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].Tests) != len(groups[j].Tests) {
			return len(groups[i].Tests) > len(groups[j].Tests)
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}
