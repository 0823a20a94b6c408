package engine

import (
	"context"
	"fmt"
	"time"

	"decent-ci/src/classify"
	"decent-ci/src/config"
	"decent-ci/src/diagnostic"
	"decent-ci/src/logger"
	"decent-ci/src/runner"
)

// cppcheck's template must match the StaticAnalyzer grammar.
const cppcheckTemplate = `--template="[{file}]:{line}:{severity}:{message}"`

// StaticAnalysis runs analyzers in place of the configure, compile and
// package sub-phases. Each analysis command is reported as one test.
type StaticAnalysis struct {
	run runner.Runner
	log logger.Logger
	now func() time.Time
}

// NewStaticAnalysis creates a StaticAnalysis adapter.
func NewStaticAnalysis(run runner.Runner, log logger.Logger) *StaticAnalysis {
	return &StaticAnalysis{run: run, log: logger.OrDefault(log), now: time.Now}
}

// Build runs every analysis command of the variant in the source tree.
func (s *StaticAnalysis) Build(ctx context.Context, job Job) (BuildOutcome, error) {
	family := classify.StaticAnalyzer
	if job.Variant.Name == config.ToolCustomCheck {
		family = classify.CustomCheck
	}

	commands := job.Variant.Commands
	if len(commands) == 0 && job.Variant.Name == config.ToolCppcheck {
		commands = []string{fmt.Sprintf("cppcheck --enable=all --inconclusive -j %d %s .", job.workers(), cppcheckTemplate)}
	}

	out := BuildOutcome{Success: true, Configured: true}
	for _, command := range commands {
		s.log.Info("[%s] Running %s", job.Variant.Name, command)
		start := s.now()
		res, err := s.run.Run(ctx, []string{command}, runner.Options{Dir: job.SourceDir})
		if err != nil {
			return out, spawnError(job.Variant.Name, err)
		}

		diags, ok := classify.Process(family, res.Stdout, res.Stderr, res.ExitCode)
		out.Diagnostics = append(out.Diagnostics, diags...)
		out.Success = out.Success && ok
		out.Tests = append(out.Tests, diagnostic.TestOutcome{
			Name:        command,
			Status:      analysisStatus(diags, ok),
			Duration:    s.now().Sub(start).Seconds(),
			Output:      joinOutput(res),
			Diagnostics: diags,
			FailureType: failureType(ok),
		})
	}
	return out, nil
}

// Package does nothing for analyzers.
func (s *StaticAnalysis) Package(context.Context, Job) (PackageOutcome, error) {
	return PackageOutcome{}, nil
}

// Test does nothing for analyzers; Build already reported the commands.
func (s *StaticAnalysis) Test(context.Context, Job) (TestRun, error) {
	return TestRun{}, nil
}

func analysisStatus(diags []diagnostic.Diagnostic, ok bool) diagnostic.TestStatus {
	if !ok {
		return diagnostic.TestFailed
	}
	for _, d := range diags {
		if d.Severity == diagnostic.SeverityWarning {
			return diagnostic.TestWarning
		}
	}
	return diagnostic.TestPassed
}

func failureType(ok bool) string {
	if ok {
		return ""
	}
	return "Static analysis failure"
}
