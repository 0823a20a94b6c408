package classify

import (
	"strings"

	"decent-ci/src/diagnostic"
	"decent-ci/src/sanitize"
)

// DefaultDescriptor is the file reported for generator messages that carry
// no location of their own.
const DefaultDescriptor = "CMakeLists.txt"

var (
	// CMake Error at CMakeLists.txt:12 (message):
	// CMake Warning (dev) at cmake/Foo.cmake:3 (find_package):
	generatorBlockHeader = mustCompile(`^(?:CMake|CPack) (Error|Warning|Deprecation Warning)(?: \(dev\))? (?:at|in) (.+?)(?::(\d+))?(?: \([^)]*\))?:\s*$`)

	// CMake Error: The source directory does not exist.
	generatorSingleLine = mustCompile(`^(CPack Error|CMake Error|CMake Warning|ERROR|WARNING):\s*(.*)$`)

	// src/module.f90:42:10:
	generatorBareHeader = mustCompile(`^(.+?):(\d+):(?:(\d+):)?\s*$`)
)

type generatorState int

const (
	generatorIdle generatorState = iota
	generatorInBlock
	// A blank line closed the block; the next line may still be its
	// trailing context.
	generatorTrailing
)

// GeneratorClassifier parses build-system generator output (CMake, CPack)
// and block-style compiler messages such as gfortran's.
type GeneratorClassifier struct {
	descriptor string
}

// NewGenerator creates a generator classifier; descriptor is the file
// reported for messages without a location.
func NewGenerator(descriptor string) *GeneratorClassifier {
	if descriptor == "" {
		descriptor = DefaultDescriptor
	}
	return &GeneratorClassifier{descriptor: descriptor}
}

func (g *GeneratorClassifier) Classify(text string) []diagnostic.Diagnostic {
	p := &generatorParser{descriptor: g.descriptor}
	for _, line := range sanitize.Lines(text) {
		p.feed(line)
	}
	p.finish()
	return p.results
}

type generatorParser struct {
	descriptor string
	state      generatorState
	previous   string

	file     string
	line     int
	column   int
	severity diagnostic.Severity
	header   string
	body     []string

	results []diagnostic.Diagnostic
}

func (p *generatorParser) feed(line string) {
	switch p.state {
	case generatorInBlock:
		if strings.TrimSpace(line) == "" {
			p.state = generatorTrailing
			p.previous = ""
			return
		}
		p.body = append(p.body, strings.TrimSpace(line))
		p.previous = line
		return
	case generatorTrailing:
		if strings.TrimSpace(line) != "" && !p.startsMessage(line) {
			p.body = append(p.body, strings.TrimSpace(line))
			p.emitBlock()
			p.previous = line
			return
		}
		p.emitBlock()
	}

	if strings.TrimSpace(line) == "" {
		p.previous = ""
		return
	}

	if m := generatorBlockHeader.FindStringSubmatch(line); m != nil {
		p.open(m[2], atoi(m[3]), 0, diagnostic.SeverityFrom(m[1]), line)
		return
	}

	if m := generatorSingleLine.FindStringSubmatch(line); m != nil {
		msg := strings.TrimSpace(m[2])
		if prev := strings.TrimSpace(p.previous); prev != "" {
			msg = prev + "\n" + msg
		}
		p.results = append(p.results, diagnostic.New(p.descriptor, 1, 0, diagnostic.SeverityFrom(m[1]), msg))
		p.previous = line
		return
	}

	if m := generatorBareHeader.FindStringSubmatch(line); m != nil && !isIncludeContext(line) {
		sev := diagnostic.SeverityError
		if strings.HasSuffix(strings.ToLower(m[1]), ".f90") {
			sev = diagnostic.SeverityWarning
		}
		p.open(m[1], atoi(m[2]), atoi(m[3]), sev, line)
		return
	}

	p.previous = line
}

// startsMessage reports whether line opens a diagnostic of its own.
func (p *generatorParser) startsMessage(line string) bool {
	if generatorBlockHeader.MatchString(line) || generatorSingleLine.MatchString(line) {
		return true
	}
	return generatorBareHeader.MatchString(line) && !isIncludeContext(line)
}

func (p *generatorParser) open(file string, line, column int, sev diagnostic.Severity, header string) {
	p.state = generatorInBlock
	p.file = strings.TrimSpace(file)
	p.line = line
	p.column = column
	p.severity = sev
	p.header = strings.TrimSpace(header)
	p.body = nil
}

func (p *generatorParser) emitBlock() {
	text := strings.Join(p.body, "\n")
	if text == "" {
		text = p.header
	}
	p.results = append(p.results, diagnostic.New(p.file, p.line, p.column, p.severity, text))
	p.state = generatorIdle
	p.body = nil
}

func (p *generatorParser) finish() {
	if p.state != generatorIdle {
		p.emitBlock()
	}
}

// "In file included from a.h:3:" and "    from b.cpp:1:" only describe where
// the following message came from.
func isIncludeContext(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.Contains(trimmed, "file included") ||
		strings.Contains(trimmed, "In file included") ||
		strings.HasPrefix(trimmed, "from ")
}
