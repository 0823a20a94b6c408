package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"decent-ci/src/diagnostic"
	"decent-ci/src/sanitize"
)

// CustomCheckSource is the file of diagnostics synthesized when a custom
// check line cannot be understood.
const CustomCheckSource = "decent_ci/custom_check"

const (
	unknownFile      = "(Unknown file)"
	noMessage        = "(No message)"
	defaultCheckType = "error"
)

// classifyCustomCheck parses one JSON object per line:
//
//	{"tool": "...", "file": "...", "line": 1, "column": 2,
//	 "messagetype": "warning", "message": "...", "id": "..."}
//
// Every field is optional. A line that is not a JSON object becomes an
// error diagnostic pointing at CustomCheckSource.
func classifyCustomCheck(text string) []diagnostic.Diagnostic {
	var results []diagnostic.Diagnostic
	for _, line := range sanitize.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		results = append(results, parseCustomCheckLine(line))
	}
	return results
}

func parseCustomCheckLine(line string) diagnostic.Diagnostic {
	var value any
	if err := json.Unmarshal([]byte(line), &value); err != nil {
		return customCheckFailure(fmt.Sprintf("unable to parse custom_check output %q: %v", line, err))
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return customCheckFailure(fmt.Sprintf("custom_check output must be a JSON object, got %s: %q", jsonKind(value), line))
	}

	file := stringField(obj, "file", unknownFile)
	lineNo := intField(obj, "line")
	column := intField(obj, "column")
	sev := diagnostic.SeverityFrom(stringField(obj, "messagetype", defaultCheckType))

	parts := []string{}
	if tool := stringField(obj, "tool", ""); tool != "" {
		parts = append(parts, tool)
	}
	if id := stringField(obj, "id", ""); id != "" {
		parts = append(parts, id)
	}
	parts = append(parts, stringField(obj, "message", noMessage))

	return diagnostic.New(file, lineNo, column, sev, strings.Join(parts, " "))
}

func customCheckFailure(msg string) diagnostic.Diagnostic {
	return diagnostic.New(CustomCheckSource, 0, 0, diagnostic.SeverityError, msg)
}

func stringField(obj map[string]any, key, fallback string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return fallback
		}
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

func intField(obj map[string]any, key string) int {
	switch t := obj[key].(type) {
	case float64:
		return int(t)
	case string:
		return atoi(t)
	default:
		return 0
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
