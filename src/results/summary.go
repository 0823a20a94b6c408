// Package results builds the report document written to the results archive
// and the human-readable comment posted on commits and pull requests.
package results

import (
	"time"

	"decent-ci/src/config"
	"decent-ci/src/coverage"
	"decent-ci/src/diagnostic"
	"decent-ci/src/provider"
)

// Status is the pass/warn/fail classification of one measurement.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Timings are the accumulated wall-clock seconds per phase.
type Timings struct {
	Build    float64 `json:"build_time" yaml:"build_time"`
	Test     float64 `json:"test_time" yaml:"test_time"`
	Package  float64 `json:"package_time" yaml:"package_time"`
	Install  float64 `json:"install_time" yaml:"install_time"`
	Coverage float64 `json:"coverage_time" yaml:"coverage_time"`
}

// Report is everything a candidate has learned about one variant.
type Report struct {
	Repository    string
	Branch        string
	Tag           string
	CommitSHA     string
	PullRequestID int

	Variant config.ToolchainVariant
	Pending bool
	Date    time.Time

	Build       []diagnostic.Diagnostic
	Package     []diagnostic.Diagnostic
	Tests       []diagnostic.TestOutcome
	Annotations []diagnostic.TestAnnotation

	// Coverage is nil when coverage was not collected.
	Coverage    *coverage.Metrics
	CoverageURL string

	Artifacts    []string
	ArtifactURLs []string

	Timings Timings

	// Unhandled is the text of an error that escaped a phase.
	Unhandled string
}

// Ref is the tag for releases and the branch otherwise.
func (r Report) Ref() string {
	if r.Tag != "" {
		return r.Tag
	}
	return r.Branch
}

// Summary is the classified state of a Report.
type Summary struct {
	BuildErrors     int `json:"build_errors" yaml:"build_errors"`
	BuildWarnings   int `json:"build_warnings" yaml:"build_warnings"`
	PackageErrors   int `json:"package_errors" yaml:"package_errors"`
	PackageWarnings int `json:"package_warnings" yaml:"package_warnings"`

	TestCount    int     `json:"test_count" yaml:"test_count"`
	TestPassed   int     `json:"test_passed" yaml:"test_passed"`
	TestWarnings int     `json:"test_warnings" yaml:"test_warnings"`
	TestFailed   int     `json:"test_failed" yaml:"test_failed"`
	TestNotRun   int     `json:"test_notrun" yaml:"test_notrun"`
	TestPercent  float64 `json:"test_percent" yaml:"test_percent"`
	TestStatus   Status  `json:"test_status" yaml:"test_status"`

	CoverageLines     float64 `json:"coverage_lines" yaml:"coverage_lines"`
	CoverageFunctions float64 `json:"coverage_functions" yaml:"coverage_functions"`
	CoverageStatus    Status  `json:"coverage_status" yaml:"coverage_status"`

	BuildFailed      bool `json:"build_failed" yaml:"build_failed"`
	TestsFailed      bool `json:"tests_failed" yaml:"tests_failed"`
	CoverageFailed   bool `json:"coverage_failed" yaml:"coverage_failed"`
	UnhandledFailure bool `json:"unhandled_failure" yaml:"unhandled_failure"`

	Status Status `json:"status" yaml:"status"`
}

// Summarize classifies r against the thresholds. Coverage limits of the
// variant take precedence over the global ones.
func Summarize(r Report, th config.Thresholds) Summary {
	var s Summary
	for _, d := range r.Build {
		countSeverity(d, &s.BuildErrors, &s.BuildWarnings)
	}
	for _, d := range r.Package {
		countSeverity(d, &s.PackageErrors, &s.PackageWarnings)
	}

	counts := diagnostic.CountTests(r.Tests)
	s.TestCount = counts.Total
	s.TestPassed = counts.Passed
	s.TestWarnings = counts.Warning
	s.TestFailed = counts.Failed
	s.TestNotRun = counts.NotRun
	if counts.Total == 0 {
		s.TestPercent = 100
		s.TestStatus = StatusSkipped
	} else {
		s.TestPercent = 100 * float64(counts.Passed) / float64(counts.Total)
		s.TestStatus = classify(s.TestPercent, th.TestPass, th.TestWarn)
	}

	s.CoverageStatus = StatusSkipped
	if r.Coverage != nil {
		pass, warn := th.CoveragePass, th.CoverageWarn
		if r.Variant.Coverage.PassLimit > 0 {
			pass = r.Variant.Coverage.PassLimit
		}
		if r.Variant.Coverage.WarnLimit > 0 {
			warn = r.Variant.Coverage.WarnLimit
		}
		s.CoverageLines = r.Coverage.LinesPercent
		s.CoverageFunctions = r.Coverage.FunctionsPercent
		s.CoverageStatus = classify(s.CoverageLines, pass, warn)
	}

	s.BuildFailed = s.BuildErrors > 0 || s.PackageErrors > 0
	s.TestsFailed = s.TestStatus == StatusFailed
	s.CoverageFailed = s.CoverageStatus == StatusFailed
	s.UnhandledFailure = r.Unhandled != ""

	switch {
	case s.BuildFailed || s.TestsFailed || s.CoverageFailed || s.UnhandledFailure:
		s.Status = StatusFailed
	case s.BuildWarnings > 0 || s.TestStatus == StatusWarning || s.CoverageStatus == StatusWarning:
		s.Status = StatusWarning
	default:
		s.Status = StatusPassed
	}
	return s
}

func countSeverity(d diagnostic.Diagnostic, errors, warnings *int) {
	switch d.Severity {
	case diagnostic.SeverityError:
		*errors++
	case diagnostic.SeverityWarning:
		*warnings++
	}
}

func classify(pct, pass, warn float64) Status {
	switch {
	case pct >= pass:
		return StatusPassed
	case pct >= warn:
		return StatusWarning
	default:
		return StatusFailed
	}
}

// State maps the summary to a commit status state. A warning still reports
// success; pending reports are always pending.
func (s Summary) State(pending bool) provider.StatusState {
	switch {
	case pending:
		return provider.StatusPending
	case s.UnhandledFailure:
		return provider.StatusErrored
	case s.Status == StatusFailed:
		return provider.StatusFailure
	default:
		return provider.StatusSuccess
	}
}

// Description is the one-line status text, most severe failure first.
func (s Summary) Description(pending bool) string {
	switch {
	case pending:
		return "Build in progress"
	case s.UnhandledFailure:
		return "Unhandled failure during build"
	case s.BuildFailed:
		return pluralize(s.BuildErrors+s.PackageErrors, "build error")
	case s.TestsFailed:
		return testLine(s) + " (failing)"
	case s.CoverageFailed:
		return "Coverage below limit"
	case s.TestCount > 0:
		return testLine(s)
	default:
		return "Build succeeded"
	}
}
