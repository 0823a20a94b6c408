// Package classify turns raw build tool output into diagnostics.
//
// One Classifier exists per tool family. Classifiers are pure: every call
// starts from a fresh parser state and only the input text is consulted
// (the Windows classifier additionally looks at the filesystem to recover
// path case).
package classify

import (
	"fmt"
	"regexp"
	"strconv"

	"decent-ci/src/diagnostic"
	"decent-ci/src/sanitize"
)

// Family names a tool family with its own output grammar.
type Family string

const (
	Native         Family = "native"
	Windows        Family = "windows"
	Generator      Family = "generator"
	StaticAnalyzer Family = "static_analyzer"
	CustomCheck    Family = "custom_check"
	Script         Family = "script"
)

// Classifier extracts diagnostics from sanitized text.
type Classifier interface {
	Classify(text string) []diagnostic.Diagnostic
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(text string) []diagnostic.Diagnostic

func (f ClassifierFunc) Classify(text string) []diagnostic.Diagnostic {
	return f(text)
}

// For returns the classifier of a family.
func For(family Family) (Classifier, error) {
	return forDir(family, "")
}

// forDir returns the classifier of a family for output produced in dir.
// Only the Windows classifier reads the filesystem.
func forDir(family Family, dir string) (Classifier, error) {
	switch family {
	case Native:
		return ClassifierFunc(classifyNative), nil
	case Windows:
		return NewWindows(caseRecoveryIn(dir)), nil
	case Generator:
		return NewGenerator(DefaultDescriptor), nil
	case StaticAnalyzer:
		return ClassifierFunc(classifyStatic), nil
	case CustomCheck:
		return ClassifierFunc(classifyCustomCheck), nil
	case Script:
		return ClassifierFunc(classifyScript), nil
	default:
		return nil, fmt.Errorf("unknown classifier family %q", family)
	}
}

// Process classifies the output of one tool invocation. Both streams are
// parsed independently. Success means the exit code was zero and no
// error-severity diagnostic was found.
func Process(family Family, stdout, stderr string, exitCode int) ([]diagnostic.Diagnostic, bool) {
	return ProcessAll([]Family{family}, stdout, stderr, exitCode)
}

// ProcessAll runs several classifiers over the same output. Grammars do not
// overlap, so a line is claimed by at most one of them in practice;
// identical diagnostics are still collapsed by the caller's Set.
func ProcessAll(families []Family, stdout, stderr string, exitCode int) ([]diagnostic.Diagnostic, bool) {
	return ProcessAllIn("", families, stdout, stderr, exitCode)
}

// ProcessAllIn is ProcessAll for a tool that ran in dir. Relative paths in
// its output are resolved against dir.
func ProcessAllIn(dir string, families []Family, stdout, stderr string, exitCode int) ([]diagnostic.Diagnostic, bool) {
	out := sanitize.String(stdout)
	errText := sanitize.String(stderr)

	var results []diagnostic.Diagnostic
	for _, family := range families {
		c, err := forDir(family, dir)
		if err != nil {
			continue
		}
		results = append(results, c.Classify(out)...)
		results = append(results, c.Classify(errText)...)
	}

	success := exitCode == 0
	for _, d := range results {
		if d.Severity == diagnostic.SeverityError {
			success = false
			break
		}
	}
	return results, success
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// mustCompile keeps the grammar tables in this package readable.
func mustCompile(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}
