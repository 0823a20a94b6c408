package mcp

import (
	"strings"

	"decent-ci/src/patterns"
	"decent-ci/src/sanitize"
)

// minPrefixLength is the minimum prefix length worth removing.
const minPrefixLength = 20

// findCommonPrefix finds the longest common prefix across lines.
// Returns empty string if prefix is too short or lines are empty.
func findCommonPrefix(lines []string) string {
	if len(lines) < 2 {
		return ""
	}

	prefix := lines[0]
	for _, line := range lines[1:] {
		for len(prefix) > 0 && !strings.HasPrefix(line, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if len(prefix) == 0 {
			break
		}
	}

	if len(prefix) < minPrefixLength {
		return ""
	}
	return prefix
}

// removeCommonPrefix replaces common prefix with "... " across lines.
func removeCommonPrefix(lines []string) []string {
	prefix := findCommonPrefix(lines)
	if prefix == "" {
		return lines
	}

	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = "... " + line[len(prefix):]
	}
	return result
}

// CompressLine cleans a compiler or test message for a response. Long
// paths and hashes are shortened; line numbers are kept.
func CompressLine(line string) string {
	return patterns.Normalize(sanitize.String(line), patterns.MaskPresentation)
}

// CompressOutput splits test output into cleaned lines, drops blank ones and
// keeps the last limit lines, which are the closest to the failure.
func CompressOutput(output string, limit int) []string {
	var lines []string
	for _, line := range sanitize.Lines(output) {
		if line = CompressLine(line); line != "" {
			lines = append(lines, line)
		}
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return removeCommonPrefix(lines)
}
