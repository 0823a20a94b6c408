package classify

import (
	"strings"

	"decent-ci/src/diagnostic"
	"decent-ci/src/sanitize"
)

var (
	// main.cpp:12:5: error: expected ';'
	nativeMessage = mustCompile(`^(.+?):(\d+):(\d+): ([^:]+): (.*)$`)

	// foo.o:12: undefined reference to `bar'
	nativeLinker = mustCompile(`^(.+?):(\d+): (.*)$`)
)

const undefinedSymbolsPrefix = "Undefined symbols for architecture"

// linkerTool is the pseudo file reported for linker blocks without a
// source location.
const linkerTool = "ld"

// classifyNative parses gcc/clang style output.
func classifyNative(text string) []diagnostic.Diagnostic {
	var results []diagnostic.Diagnostic

	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		results = append(results, diagnostic.New(linkerTool, 0, 0, diagnostic.SeverityError, strings.Join(block, "\n")))
		block = nil
	}

	for _, line := range sanitize.Lines(text) {
		if len(block) > 0 {
			if line != "" && (line[0] == ' ' || line[0] == '\t') {
				block = append(block, strings.TrimSpace(line))
				continue
			}
			flush()
		}

		if strings.HasPrefix(line, undefinedSymbolsPrefix) {
			block = append(block, strings.TrimSpace(line))
			continue
		}

		if d, ok := parseNativeLine(line); ok {
			results = append(results, d)
		}
	}
	flush()

	return results
}

func parseNativeLine(line string) (diagnostic.Diagnostic, bool) {
	if m := nativeMessage.FindStringSubmatch(line); m != nil {
		if diagnostic.IsInformational(m[4]) {
			return diagnostic.Diagnostic{}, false
		}
		return diagnostic.New(m[1], atoi(m[2]), atoi(m[3]), diagnostic.SeverityFrom(m[4]), m[5]), true
	}

	if m := nativeLinker.FindStringSubmatch(line); m != nil {
		msg := m[3]
		if strings.Contains(msg, "multiple definition") || strings.Contains(msg, "undefined") {
			return diagnostic.New(m[1], atoi(m[2]), 0, diagnostic.SeverityError, msg), true
		}
	}

	return diagnostic.Diagnostic{}, false
}
