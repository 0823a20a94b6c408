// Package coverage extracts line and function coverage from a build tree
// with lcov and renders the HTML report with genhtml.
package coverage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"decent-ci/src/config"
	"decent-ci/src/logger"
	"decent-ci/src/runner"
)

const (
	rawFile      = "coverage.info"
	filteredFile = "coverage.filtered.info"

	// HTMLDir is where genhtml writes the report, relative to the build dir.
	HTMLDir = "lcov-html"
)

// genhtml summary:
//
//	lines......: 81.2% (1234 of 1520 lines)
//	functions..: 90.0% (90 of 100 functions)
var summaryLine = regexp.MustCompile(`^\s*(lines|functions)\.*:\s*([\d.]+)%\s*\((\d+) of (\d+)`)

// Metrics is the coverage summary of one build.
type Metrics struct {
	LinesPercent     float64 `json:"lines_percent" yaml:"lines_percent"`
	LinesCovered     int     `json:"lines_covered" yaml:"lines_covered"`
	LinesTotal       int     `json:"lines_total" yaml:"lines_total"`
	FunctionsPercent float64 `json:"functions_percent" yaml:"functions_percent"`
	FunctionsCovered int     `json:"functions_covered" yaml:"functions_covered"`
	FunctionsTotal   int     `json:"functions_total" yaml:"functions_total"`

	// ReportDir is the rendered HTML report.
	ReportDir string `json:"-" yaml:"-"`
}

// Collector runs the lcov tool chain.
type Collector struct {
	run runner.Runner
	log logger.Logger
}

// NewCollector creates a Collector.
func NewCollector(run runner.Runner, log logger.Logger) *Collector {
	return &Collector{run: run, log: logger.OrDefault(log)}
}

// Collect captures counters from buildDir, removes the configured filters
// and renders the report. The summary is parsed from genhtml's output.
func (c *Collector) Collect(ctx context.Context, settings config.Coverage, sourceDir, buildDir string) (Metrics, error) {
	base := settings.BaseDir
	if base == "" {
		base = sourceDir
	} else if !filepath.IsAbs(base) {
		base = filepath.Join(sourceDir, base)
	}

	capture := fmt.Sprintf("lcov --capture --directory %q --base-directory %q --no-external --output-file %s", buildDir, base, rawFile)
	input := rawFile
	commands := []string{capture}
	if len(settings.Filters) > 0 {
		quoted := make([]string, len(settings.Filters))
		for i, f := range settings.Filters {
			quoted[i] = fmt.Sprintf("%q", f)
		}
		commands = append(commands, fmt.Sprintf("lcov --remove %s %s --output-file %s", rawFile, strings.Join(quoted, " "), filteredFile))
		input = filteredFile
	}
	commands = append(commands, fmt.Sprintf("genhtml %s --output-directory %s", input, HTMLDir))

	c.log.Info("[Coverage] Collecting from %s", buildDir)
	res, err := c.run.Run(ctx, commands, runner.Options{Dir: buildDir})
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to run lcov: %w", err)
	}
	if !res.Success() {
		return Metrics{}, fmt.Errorf("coverage tools exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	m := ParseSummary(res.Stdout)
	m.ReportDir = filepath.Join(buildDir, HTMLDir)
	c.log.Info("[Coverage] lines %.1f%%, functions %.1f%%", m.LinesPercent, m.FunctionsPercent)
	return m, nil
}

// ParseSummary reads the overall rates genhtml prints at the end of a run.
// The last occurrence of each line wins.
func ParseSummary(output string) Metrics {
	var m Metrics
	for _, line := range strings.Split(output, "\n") {
		match := summaryLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		pct, _ := strconv.ParseFloat(match[2], 64)
		covered, _ := strconv.Atoi(match[3])
		total, _ := strconv.Atoi(match[4])
		switch match[1] {
		case "lines":
			m.LinesPercent, m.LinesCovered, m.LinesTotal = pct, covered, total
		case "functions":
			m.FunctionsPercent, m.FunctionsCovered, m.FunctionsTotal = pct, covered, total
		}
	}
	return m
}
