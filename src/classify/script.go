package classify

import (
	"strings"

	"decent-ci/src/diagnostic"
	"decent-ci/src/sanitize"
)

// scriptSource is the file reported for script errors without a location.
const scriptSource = "(script)"

var (
	// ! LaTeX Error: File `missing.sty' not found.
	latexError = mustCompile(`^!\s*(.*?Error):\s*(.*)$`)

	//   File "tools/gen.py", line 12, in <module>
	pythonFrame = mustCompile(`^\s*File "(.+)", line (\d+)`)

	// ValueError: invalid literal for int()
	pythonError = mustCompile(`^([A-Za-z_][\w.]*(?:Error|Exception)): (.*)$`)
)

// classifyScript parses LaTeX and Python traceback output.
func classifyScript(text string) []diagnostic.Diagnostic {
	var results []diagnostic.Diagnostic
	for _, line := range sanitize.Lines(text) {
		switch {
		case latexError.MatchString(line):
			m := latexError.FindStringSubmatch(line)
			results = append(results, diagnostic.New(scriptSource, 0, 0, diagnostic.SeverityError, m[1]+": "+m[2]))
		case pythonFrame.MatchString(line):
			m := pythonFrame.FindStringSubmatch(line)
			results = append(results, diagnostic.New(m[1], atoi(m[2]), 0, diagnostic.SeverityError, strings.TrimSpace(line)))
		case pythonError.MatchString(line):
			m := pythonError.FindStringSubmatch(line)
			results = append(results, diagnostic.New(scriptSource, 0, 0, diagnostic.SeverityError, m[1]+": "+m[2]))
		}
	}
	return results
}
