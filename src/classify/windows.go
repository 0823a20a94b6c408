package classify

import (
	"os"
	"path/filepath"
	"strings"

	"decent-ci/src/diagnostic"
	"decent-ci/src/sanitize"
)

var (
	// C:\src\main.cpp(12): error C2143: syntax error [C:\build\app.vcxproj]
	// C:\src\main.cpp(12,5): warning C4244: conversion [C:\build\app.vcxproj]
	windowsLocated = mustCompile(`^\s*(.+?)\((\d+)(?:,(\d+))?\)\s?: ((?:fatal )?[A-Za-z]+) ([A-Za-z]+\d+): (.*?)(?: \[[^\]]*\])?$`)

	// LINK : fatal error LNK1181: cannot open input file [C:\build\app.vcxproj]
	windowsToolLevel = mustCompile(`^\s*(.+?) : ((?:fatal )?[A-Za-z]+) ([A-Za-z]+\d+): (.*?)(?: \[[^\]]*\])?$`)
)

// WindowsClassifier parses MSVC / MSBuild output.
type WindowsClassifier struct {
	recoverCase func(string) string
}

// NewWindows creates a Windows classifier. recoverCase maps the lower-cased
// paths MSVC prints back onto the real on-disk spelling; nil disables it.
func NewWindows(recoverCase func(string) string) *WindowsClassifier {
	if recoverCase == nil {
		recoverCase = func(p string) string { return p }
	}
	return &WindowsClassifier{recoverCase: recoverCase}
}

func (w *WindowsClassifier) Classify(text string) []diagnostic.Diagnostic {
	var results []diagnostic.Diagnostic
	for _, line := range sanitize.Lines(text) {
		if m := windowsLocated.FindStringSubmatch(line); m != nil {
			if diagnostic.IsInformational(m[4]) {
				continue
			}
			results = append(results, diagnostic.New(
				w.recoverCase(m[1]), atoi(m[2]), atoi(m[3]),
				diagnostic.SeverityFrom(m[4]), m[5]+": "+m[6]))
			continue
		}
		if m := windowsToolLevel.FindStringSubmatch(line); m != nil {
			if diagnostic.IsInformational(m[2]) {
				continue
			}
			results = append(results, diagnostic.New(
				w.recoverCase(m[1]), 0, 0,
				diagnostic.SeverityFrom(m[2]), m[3]+": "+m[4]))
		}
	}
	return results
}

// RecoverCase returns path with every component spelled the way the
// filesystem spells it. Relative paths are looked up from the working
// directory. If any component cannot be found the input is returned
// unchanged.
func RecoverCase(path string) string {
	return RecoverCaseIn("", path)
}

// RecoverCaseIn is RecoverCase with relative paths looked up from dir, the
// directory the compiler ran in. The result stays relative.
func RecoverCaseIn(dir, path string) string {
	if path == "" {
		return path
	}
	if recovered, ok := walkCase(dir, path); ok {
		return recovered
	}
	return path
}

// caseRecoveryIn binds RecoverCaseIn to dir.
func caseRecoveryIn(dir string) func(string) string {
	return func(path string) string { return RecoverCaseIn(dir, path) }
}

func walkCase(dir, path string) (string, bool) {
	sep := string(filepath.Separator)
	clean := filepath.Clean(path)
	volume := filepath.VolumeName(clean)
	rest := clean[len(volume):]

	root := ""
	if strings.HasPrefix(rest, sep) {
		root = sep
		rest = strings.TrimLeft(rest, sep)
	}
	current := volume + root
	if current == "" {
		current = dir
		if current == "" {
			current = "."
		}
	}
	if rest == "" {
		return clean, true
	}

	var built []string
	for _, part := range strings.Split(rest, sep) {
		if part == "." || part == ".." {
			built = append(built, part)
			current = filepath.Join(current, part)
			continue
		}
		entries, err := os.ReadDir(current)
		if err != nil {
			return "", false
		}
		match := ""
		for _, e := range entries {
			if e.Name() == part {
				match = part
				break
			}
			if match == "" && strings.EqualFold(e.Name(), part) {
				match = e.Name()
			}
		}
		if match == "" {
			return "", false
		}
		built = append(built, match)
		current = filepath.Join(current, match)
	}

	return volume + root + strings.Join(built, sep), true
}
