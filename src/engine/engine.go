// Package engine drives the build tools of one toolchain variant against a
// source tree and an isolated build tree. Adapters keep no state between
// calls; everything they learn is returned to the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"decent-ci/src/config"
	"decent-ci/src/diagnostic"
	"decent-ci/src/logger"
	"decent-ci/src/runner"
)

// ErrPackageFailed is returned when packaging failed without producing any
// diagnostic that would explain it.
var ErrPackageFailed = errors.New("packaging failed without diagnostics")

// Baseline is the build used as reference by regression tests.
type Baseline struct {
	BuildDir      string
	RegressionDir string
	CommitSHA     string
}

// Job is the input of one engine invocation.
type Job struct {
	Variant   config.ToolchainVariant
	SourceDir string
	BuildDir  string

	// CommitRef identifies the build under test: the commit SHA, or the tag
	// name for releases.
	CommitRef string

	// Baseline is nil when no regression baseline is available.
	Baseline *Baseline

	// TestTag is the in-band test marker prefix.
	TestTag string
}

func (j Job) buildType() string {
	if j.Variant.BuildType == "" {
		return config.DefaultBuildType
	}
	return j.Variant.BuildType
}

func (j Job) workers() int {
	if j.Variant.Workers < 1 {
		return 1
	}
	return j.Variant.Workers
}

// BuildOutcome is the result of the configure and compile sub-phases.
type BuildOutcome struct {
	Diagnostics []diagnostic.Diagnostic
	Success     bool

	// Configured is false when configure failed and compile was skipped.
	Configured bool

	// Tests holds one outcome per analysis command for static analysis
	// variants.
	Tests []diagnostic.TestOutcome
}

// PackageOutcome is the result of the package sub-phase. Artifacts is empty
// when packaging failed with diagnostics.
type PackageOutcome struct {
	Diagnostics []diagnostic.Diagnostic
	Artifacts   []string
}

// TestRun is the result of the test sub-phase.
type TestRun struct {
	Outcomes    []diagnostic.TestOutcome
	Annotations []diagnostic.TestAnnotation
}

// Adapter runs the build sub-phases of a variant.
type Adapter interface {
	Build(ctx context.Context, job Job) (BuildOutcome, error)
	Package(ctx context.Context, job Job) (PackageOutcome, error)
	Test(ctx context.Context, job Job) (TestRun, error)
}

// For selects the adapter for variant.
func For(variant config.ToolchainVariant, run runner.Runner, log logger.Logger) Adapter {
	log = logger.OrDefault(log)
	switch variant.Adapter() {
	case config.AdapterStaticAnalysis:
		return NewStaticAnalysis(run, log)
	default:
		return NewCMake(run, log)
	}
}

// quote wraps a path for the platform shell. Paths containing a double
// quote are not supported by the tools anyway.
func quote(s string) string {
	return `"` + s + `"`
}

// joinOutput merges the two streams of a result for storage.
func joinOutput(res runner.Result) string {
	var b strings.Builder
	b.WriteString(res.Stdout)
	if res.Stdout != "" && res.Stderr != "" && !strings.HasSuffix(res.Stdout, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(res.Stderr)
	return b.String()
}

func regressionEnv(job Job) map[string]string {
	env := map[string]string{
		"REGRESSION_BASE":        " ",
		"REGRESSION_DIR":         " ",
		"REGRESSION_BASE_HASH":   " ",
		"REGRESSION_COMMIT_HASH": " ",
	}
	if b := job.Baseline; b != nil && !job.Variant.SkipRegression {
		env["REGRESSION_BASE"] = b.BuildDir
		env["REGRESSION_DIR"] = b.RegressionDir
		env["REGRESSION_BASE_HASH"] = b.CommitSHA
		env["REGRESSION_COMMIT_HASH"] = job.CommitRef
	}
	return env
}

func spawnError(phase string, err error) error {
	return fmt.Errorf("%s: %w", phase, err)
}
