// Demo program to showcase the results viewer with a realistic archive.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"decent-ci/src/archive"
	"decent-ci/src/config"
	"decent-ci/src/coverage"
	"decent-ci/src/diagnostic"
	"decent-ci/src/results"
	"decent-ci/src/tui"
)

func main() {
	fmt.Println("Generating sample results...")
	mem := archive.NewMemoryArchive()
	reports := generateSampleReports(time.Now())
	for _, r := range reports {
		doc := results.NewDocument(r, thresholds)
		path := results.Path(config.DefaultResultsPath, r)
		mem.Put(path, path, doc)
	}

	fmt.Printf("Loaded %d results across %d refs.\n", mem.Len(), countRefs(reports))
	fmt.Println("Launching viewer...")
	time.Sleep(500 * time.Millisecond) // Brief pause for effect

	if err := tui.Run(context.Background(), mem, archive.Filter{}, 0); err != nil {
		fmt.Fprintf(os.Stderr, "Error running viewer: %v\n", err)
		os.Exit(1)
	}
}

var thresholds = config.Thresholds{
	TestPass:     config.DefaultTestPassLimit,
	TestWarn:     config.DefaultTestWarnLimit,
	CoveragePass: config.DefaultCoveragePassLimit,
	CoverageWarn: config.DefaultCoverageWarnLimit,
}

func countRefs(reports []results.Report) int {
	refs := make(map[string]bool)
	for _, r := range reports {
		refs[results.Folder(r)] = true
	}
	return len(refs)
}

func variant(name, version, osRelease, buildType string) config.ToolchainVariant {
	return config.ToolchainVariant{
		Name:                    name,
		Version:                 version,
		Description:             name + "-" + version,
		ArchitectureDescription: "x86_64",
		OS:                      "Linux",
		OSRelease:               osRelease,
		BuildType:               buildType,
	}
}

func passing(names ...string) []diagnostic.TestOutcome {
	out := make([]diagnostic.TestOutcome, len(names))
	for i, n := range names {
		out[i] = diagnostic.TestOutcome{Name: n, Status: diagnostic.TestPassed, Duration: 0.4 + float64(i)/10}
	}
	return out
}

var unitTests = []string{
	"unit.parser.tokens", "unit.parser.grammar", "unit.io.buffer", "unit.io.file",
	"unit.net.resolve", "unit.net.socket", "unit.core.schedule", "unit.core.alloc",
}

func generateSampleReports(now time.Time) []results.Report {
	gcc := variant("gcc", "12", "Ubuntu-22.04", "Release")
	clang := variant("clang", "15", "Ubuntu-22.04", "Debug")
	cppcheck := variant("cppcheck", "2.10", "Ubuntu-22.04", "Release")
	cppcheck.Name = config.ToolCppcheck

	return []results.Report{
		// 1. develop - everything green with coverage
		{
			Repository: "octo/engine",
			Branch:     "develop",
			CommitSHA:  "4f2a9c1e7b3d5a6f8e0c",
			Variant:    clang,
			Date:       now.Add(-3 * time.Hour),
			Tests:      passing(unitTests...),
			Coverage: &coverage.Metrics{
				LinesPercent: 93.4, LinesCovered: 8412, LinesTotal: 9006,
				FunctionsPercent: 88.1, FunctionsCovered: 1021, FunctionsTotal: 1159,
			},
			Timings: results.Timings{Build: 412, Test: 96, Coverage: 58},
		},

		// 2. develop - compiler warnings only
		{
			Repository: "octo/engine",
			Branch:     "develop",
			CommitSHA:  "4f2a9c1e7b3d5a6f8e0c",
			Variant:    gcc,
			Date:       now.Add(-3 * time.Hour),
			Build: []diagnostic.Diagnostic{
				{File: "src/core/alloc.cpp", Line: 88, Column: 14, Severity: diagnostic.SeverityWarning, Text: "unused variable 'slack' [-Wunused-variable]"},
				{File: "src/net/socket.cpp", Line: 214, Column: 9, Severity: diagnostic.SeverityWarning, Text: "comparison of integer expressions of different signedness: 'int' and 'size_t' [-Wsign-compare]"},
			},
			Tests:   passing(unitTests...),
			Timings: results.Timings{Build: 388, Test: 91},
		},

		// 3. pull request - build broken
		{
			Repository:    "contrib/engine",
			Branch:        "resolver-cache",
			CommitSHA:     "b81c0d2e93af47a1c5d6",
			PullRequestID: 312,
			Variant:       gcc,
			Date:          now.Add(-40 * time.Minute),
			Build: []diagnostic.Diagnostic{
				{File: "src/net/resolve.cpp", Line: 131, Column: 22, Severity: diagnostic.SeverityError, Text: "'ResolverCache' was not declared in this scope"},
				{File: "src/net/resolve.cpp", Line: 140, Column: 5, Severity: diagnostic.SeverityError, Text: "expected ';' before 'return'"},
				{File: "ld", Severity: diagnostic.SeverityError, Text: "undefined reference to `net::Resolver::flush()'"},
			},
			Timings: results.Timings{Build: 97},
		},

		// 4. pull request - failing tests with annotations
		{
			Repository:    "contrib/engine",
			Branch:        "io-rework",
			CommitSHA:     "77e10fa3c2b94d5e6a18",
			PullRequestID: 309,
			Variant:       clang,
			Date:          now.Add(-2 * time.Hour),
			Tests: append(passing(unitTests[:6]...),
				diagnostic.TestOutcome{
					Name:        "unit.core.schedule",
					Status:      diagnostic.TestFailed,
					Duration:    12.8,
					FailureType: "Failed",
					Output: "Running scheduler soak test\n" +
						"worker 3 stalled after 1024 iterations\n" +
						"/src/test/schedule_test.cpp:77: Failure\n" +
						"Expected: queue.size() == 0\n" +
						"  Actual: 17",
					Diagnostics: []diagnostic.Diagnostic{
						{File: "test/schedule_test.cpp", Line: 77, Severity: diagnostic.SeverityError, Text: "Expected: queue.size() == 0"},
					},
				},
				diagnostic.TestOutcome{Name: "unit.core.alloc", Status: diagnostic.TestNotRun},
			),
			Annotations: []diagnostic.TestAnnotation{
				{TestName: "unit.io.file", Message: "slow filesystem detected: 412ms for 4096 writes"},
				{TestName: "unit.io.buffer", Message: "slow filesystem detected: 388ms for 4096 writes"},
			},
			Timings: results.Timings{Build: 405, Test: 133},
		},

		// 5. release - still building
		{
			Repository: "octo/engine",
			Tag:        "v3.2.0",
			CommitSHA:  "e5d40c8b1a2f3e4d5c6b",
			Variant:    gcc,
			Pending:    true,
			Date:       now.Add(-5 * time.Minute),
		},

		// 6. release - packaged
		{
			Repository:   "octo/engine",
			Tag:          "v3.1.4",
			CommitSHA:    "0a9b8c7d6e5f4a3b2c1d",
			Variant:      gcc,
			Date:         now.Add(-26 * time.Hour),
			Tests:        passing(unitTests...),
			Artifacts:    []string{"engine-3.1.4-Linux.tar.gz"},
			ArtifactURLs: []string{"https://example.invalid/engine-3.1.4-Linux.tar.gz"},
			Timings:      results.Timings{Build: 431, Test: 94, Package: 22},
		},

		// 7. static analysis on develop
		{
			Repository: "octo/engine",
			Branch:     "develop",
			CommitSHA:  "4f2a9c1e7b3d5a6f8e0c",
			Variant:    cppcheck,
			Date:       now.Add(-3 * time.Hour),
			Tests: []diagnostic.TestOutcome{{
				Name:   "cppcheck",
				Status: diagnostic.TestWarning,
				Diagnostics: []diagnostic.Diagnostic{
					{File: "src/io/buffer.cpp", Line: 52, Severity: diagnostic.SeverityWarning, Text: "Member variable 'Buffer::m_cap' is not initialized in the constructor."},
				},
			}},
			Timings: results.Timings{Test: 18},
		},

		// 8. feature branch - crashed before testing
		{
			Repository: "octo/engine",
			Branch:     "feature/async-io",
			CommitSHA:  "c0ffee0123456789abcd",
			Variant:    clang,
			Date:       now.Add(-7 * time.Hour),
			Unhandled:  "cmake configure failed: Could not find a package configuration file provided by \"liburing\"",
		},
	}
}
