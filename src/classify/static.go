package classify

import (
	"strings"

	"decent-ci/src/diagnostic"
	"decent-ci/src/sanitize"
)

// [src/main.cpp]:12:style:Variable 'x' is assigned a value that is never used.
var staticTemplate = mustCompile(`^\[(.+)\]:(\d+):(\w+):(.*)$`)

// classifyStatic parses cppcheck output produced with
// --template='[{file}]:{line}:{severity}:{message}'.
func classifyStatic(text string) []diagnostic.Diagnostic {
	var results []diagnostic.Diagnostic
	for _, line := range sanitize.Lines(text) {
		m := staticTemplate.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		results = append(results, diagnostic.New(m[1], atoi(m[2]), 0, staticSeverity(m[3]), strings.TrimSpace(m[4])))
	}
	return results
}

func staticSeverity(token string) diagnostic.Severity {
	switch strings.ToLower(token) {
	case "style", "performance", "portability":
		return diagnostic.SeverityWarning
	case "information":
		return diagnostic.SeverityInfo
	default:
		return diagnostic.SeverityFrom(token)
	}
}
