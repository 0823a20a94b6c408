package results

import (
	"errors"
	"strings"
	"testing"
	"time"

	"decent-ci/src/config"
	"decent-ci/src/coverage"
	"decent-ci/src/diagnostic"
	"decent-ci/src/provider"
)

var thresholds = config.Thresholds{TestPass: 99, TestWarn: 90, CoveragePass: 90, CoverageWarn: 75}

func variant() config.ToolchainVariant {
	return config.ToolchainVariant{
		Name:                    "gcc",
		Version:                 "12",
		Description:             "gcc-12",
		ArchitectureDescription: "x86_64",
		OS:                      "Linux",
		OSRelease:               "Ubuntu-22.04",
		BuildType:               "Release",
	}
}

func outcomes(passed, failed int) []diagnostic.TestOutcome {
	var out []diagnostic.TestOutcome
	for i := 0; i < passed; i++ {
		out = append(out, diagnostic.TestOutcome{Name: "pass", Status: diagnostic.TestPassed})
	}
	for i := 0; i < failed; i++ {
		out = append(out, diagnostic.TestOutcome{Name: "fail", Status: diagnostic.TestFailed, FailureType: "Failed"})
	}
	return out
}

func TestSummarize(t *testing.T) {
	buildErr := diagnostic.New("a.cpp", 1, 1, diagnostic.SeverityError, "boom")
	buildWarn := diagnostic.New("a.cpp", 2, 1, diagnostic.SeverityWarning, "hmm")

	tests := []struct {
		name   string
		report Report
		want   Status
		check  func(t *testing.T, s Summary)
	}{
		{
			name:   "clean build without tests",
			report: Report{},
			want:   StatusPassed,
			check: func(t *testing.T, s Summary) {
				if s.TestStatus != StatusSkipped || s.CoverageStatus != StatusSkipped {
					t.Errorf("statuses = %s / %s, want skipped", s.TestStatus, s.CoverageStatus)
				}
			},
		},
		{
			name:   "build error",
			report: Report{Build: []diagnostic.Diagnostic{buildErr, buildWarn}},
			want:   StatusFailed,
			check: func(t *testing.T, s Summary) {
				if !s.BuildFailed || s.BuildErrors != 1 || s.BuildWarnings != 1 {
					t.Errorf("summary = %+v", s)
				}
			},
		},
		{
			name:   "build warning",
			report: Report{Build: []diagnostic.Diagnostic{buildWarn}},
			want:   StatusWarning,
		},
		{
			name:   "tests within warn band",
			report: Report{Tests: outcomes(95, 5)},
			want:   StatusWarning,
			check: func(t *testing.T, s Summary) {
				if s.TestPercent != 95 || s.TestStatus != StatusWarning {
					t.Errorf("test = %v%% %s", s.TestPercent, s.TestStatus)
				}
			},
		},
		{
			name:   "tests below warn limit",
			report: Report{Tests: outcomes(1, 1)},
			want:   StatusFailed,
			check: func(t *testing.T, s Summary) {
				if !s.TestsFailed {
					t.Error("TestsFailed should be set")
				}
			},
		},
		{
			name:   "coverage uses variant limits",
			report: Report{Coverage: &coverage.Metrics{LinesPercent: 60}, Variant: config.ToolchainVariant{Coverage: config.Coverage{PassLimit: 50, WarnLimit: 40}}},
			want:   StatusPassed,
		},
		{
			name:   "coverage below global limit",
			report: Report{Coverage: &coverage.Metrics{LinesPercent: 60}},
			want:   StatusFailed,
			check: func(t *testing.T, s Summary) {
				if !s.CoverageFailed {
					t.Error("CoverageFailed should be set")
				}
			},
		},
		{
			name:   "unhandled failure",
			report: Report{Unhandled: "panic: nil map"},
			want:   StatusFailed,
			check: func(t *testing.T, s Summary) {
				if !s.UnhandledFailure || s.State(false) != provider.StatusErrored {
					t.Errorf("summary = %+v", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.report, thresholds)
			if s.Status != tt.want {
				t.Errorf("Status = %s, want %s", s.Status, tt.want)
			}
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestSummaryState(t *testing.T) {
	failed := Summary{Status: StatusFailed, BuildFailed: true, BuildErrors: 2}
	if got := failed.State(true); got != provider.StatusPending {
		t.Errorf("pending State() = %s", got)
	}
	if got := failed.State(false); got != provider.StatusFailure {
		t.Errorf("State() = %s, want failure", got)
	}
	if got := failed.Description(false); got != "2 build errors" {
		t.Errorf("Description() = %q", got)
	}
	if got := (Summary{Status: StatusWarning}).State(false); got != provider.StatusSuccess {
		t.Errorf("warning State() = %s, want success", got)
	}
}

func TestPath(t *testing.T) {
	date := time.Date(2024, 5, 21, 23, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		report Report
		want   string
	}{
		{"branch", Report{Branch: "feature/x", Date: date, Variant: variant()}, "_posts/feature-x/2024-05-21-x86_64-Linux-Ubuntu-22.04-gcc-12.html"},
		{"tag", Report{Branch: "main", Tag: "v1.0", Date: date, Variant: variant()}, "_posts/v1.0/2024-05-21-x86_64-Linux-Ubuntu-22.04-gcc-12.html"},
		{"pull request", Report{Branch: "fix", PullRequestID: 42, Date: date, Variant: variant()}, "_posts/PullRequest42/2024-05-21-x86_64-Linux-Ubuntu-22.04-gcc-12.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Path("_posts", tt.report); got != tt.want {
				t.Errorf("Path() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDocumentMarshalParse(t *testing.T) {
	r := Report{
		Repository: "octo/app",
		Branch:     "main",
		CommitSHA:  "0123456789abcdef",
		Variant:    variant(),
		Pending:    true,
		Date:       time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC),
		Build:      []diagnostic.Diagnostic{diagnostic.New("a.cpp", 3, 5, diagnostic.SeverityWarning, "unused")},
		Tests:      outcomes(2, 0),
		Annotations: []diagnostic.TestAnnotation{
			{TestName: "t1", Message: "3 values differ"},
			{TestName: "t2", Message: "5 values differ"},
		},
		Timings: Timings{Build: 12.5},
	}

	data, err := NewDocument(r, thresholds).Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "---\n") {
		t.Fatalf("document should start with front matter:\n%s", text)
	}
	for _, want := range []string{"layout: ci_results", "build_warnings: 1", `"build_results"`, `"performance_results"`, `"configuration"`} {
		if !strings.Contains(text, want) {
			t.Errorf("document missing %q", want)
		}
	}

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	fm := doc.FrontMatter
	if fm.Title != "octo/app main (0123456789) x86_64-Linux-Ubuntu-22.04-gcc-12" {
		t.Errorf("Title = %q", fm.Title)
	}
	if !fm.Pending || fm.BuildWarnings != 1 || fm.TestCount != 2 || fm.Timings.Build != 12.5 {
		t.Errorf("front matter = %+v", fm)
	}
	if !fm.Date.Equal(r.Date) {
		t.Errorf("Date = %s", fm.Date)
	}
	if len(doc.Body.BuildResults) != 1 || doc.Body.BuildResults[0].Line != 3 {
		t.Errorf("BuildResults = %v", doc.Body.BuildResults)
	}
	if len(doc.Body.AnnotationGroups) != 1 || len(doc.Body.AnnotationGroups[0].Tests) != 2 {
		t.Errorf("AnnotationGroups = %+v", doc.Body.AnnotationGroups)
	}
}

func TestParse_NoFrontMatter(t *testing.T) {
	if _, err := Parse([]byte(`{"build_results": []}`)); !errors.Is(err, ErrNoFrontMatter) {
		t.Errorf("Parse() error = %v, want ErrNoFrontMatter", err)
	}
}

func TestComment(t *testing.T) {
	r := Report{
		Repository: "octo/app",
		Branch:     "main",
		Variant:    variant(),
		Build: []diagnostic.Diagnostic{
			diagnostic.New("b.cpp", 7, 1, diagnostic.SeverityWarning, "unused variable"),
			diagnostic.New("a.cpp", 3, 5, diagnostic.SeverityError, "expected ';'"),
		},
		Tests:       outcomes(3, 1),
		Annotations: []diagnostic.TestAnnotation{{TestName: "fail", Message: "baseline missing"}},
		Coverage:    &coverage.Metrics{LinesPercent: 91, FunctionsPercent: 80},
		CoverageURL: "https://cov.example/run",
	}

	body := Comment(NewDocument(r, thresholds), 0)

	for _, want := range []string{
		":x: x86_64-Linux-Ubuntu-22.04-gcc-12: 1 build error",
		"| Build    | failed | 1 error, 1 warning",
		"| Test     | failed | 3 of 4 tests passed (75.00%)",
		"- error `a.cpp:3:5` expected ';'",
		"- `fail` Failed",
		"- baseline missing (1 test)",
		"[Coverage report](https://cov.example/run)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("comment missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "a.cpp") > strings.Index(body, "b.cpp") {
		t.Error("errors should be listed before warnings")
	}
}

func TestComment_LimitsDiagnostics(t *testing.T) {
	var diags []diagnostic.Diagnostic
	for i := 1; i <= 5; i++ {
		diags = append(diags, diagnostic.New("a.cpp", i, 0, diagnostic.SeverityWarning, strings.Repeat("w", i)))
	}
	body := Comment(NewDocument(Report{Variant: variant(), Build: diags}, thresholds), 2)
	if !strings.Contains(body, "_3 more diagnostics not shown._") {
		t.Errorf("comment should note dropped diagnostics:\n%s", body)
	}
}
