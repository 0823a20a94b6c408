package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"decent-ci/src/classify"
	"decent-ci/src/config"
	"decent-ci/src/diagnostic"
	"decent-ci/src/logger"
	"decent-ci/src/runner"
	"decent-ci/src/testreport"
)

// compileFamilies classify compile output. A build mixes generator, compiler
// and script messages; each line matches at most one grammar.
var compileFamilies = []classify.Family{classify.Windows, classify.Native, classify.Generator, classify.Script}

// CPack: - package: /build/foo-1.0-Linux.tar.gz generated.
var packageGenerated = regexp.MustCompile(`- package: (.+) generated\.`)

// CMake builds, packages and tests a project with cmake, cpack and ctest.
type CMake struct {
	run runner.Runner
	log logger.Logger
}

// NewCMake creates a CMake adapter.
func NewCMake(run runner.Runner, log logger.Logger) *CMake {
	return &CMake{run: run, log: logger.OrDefault(log)}
}

// Build configures the build tree and compiles it. A configure failure skips
// the compile step.
func (c *CMake) Build(ctx context.Context, job Job) (BuildOutcome, error) {
	if err := os.MkdirAll(job.BuildDir, 0o755); err != nil {
		return BuildOutcome{}, fmt.Errorf("failed to create build dir: %w", err)
	}

	env := c.env(job)
	opts := runner.Options{Dir: job.BuildDir, Env: env}

	c.log.Info("[CMake] Configuring %s (%s)", job.Variant.DeviceID(), job.buildType())
	res, err := c.run.Run(ctx, []string{c.configureCommand(job)}, opts)
	if err != nil {
		return BuildOutcome{}, spawnError("configure", err)
	}
	diags, ok := classify.Process(classify.Generator, res.Stdout, res.Stderr, res.ExitCode)
	if !ok {
		c.log.Warn("[CMake] Configure failed with exit code %d", res.ExitCode)
		return BuildOutcome{Diagnostics: diags}, nil
	}

	c.log.Info("[CMake] Compiling with %d workers", job.workers())
	res, err = c.run.Run(ctx, []string{c.compileCommand(job)}, opts)
	if err != nil {
		return BuildOutcome{Diagnostics: diags, Configured: true}, spawnError("compile", err)
	}
	compiled, ok := classify.ProcessAllIn(job.BuildDir, compileFamilies, res.Stdout, res.Stderr, res.ExitCode)
	if !ok {
		c.log.Warn("[CMake] Compile failed with exit code %d", res.ExitCode)
	}

	return BuildOutcome{
		Diagnostics: append(diags, compiled...),
		Success:     ok,
		Configured:  true,
	}, nil
}

func (c *CMake) configureCommand(job Job) string {
	v := job.Variant
	args := []string{"cmake", quote(job.SourceDir), "-DCMAKE_BUILD_TYPE:STRING=" + job.buildType()}

	if v.IsVisualStudio() {
		if v.Generator != "" {
			args = append(args, "-G", quote(v.Generator))
		}
		if v.Platform != "" {
			args = append(args, "-A", v.Platform)
		}
	} else {
		if v.CC != "" {
			args = append(args, "-DCMAKE_C_COMPILER:STRING="+quote(v.CC))
		}
		if v.CXX != "" {
			args = append(args, "-DCMAKE_CXX_COMPILER:STRING="+quote(v.CXX))
		}
		if v.Generator != "" {
			args = append(args, "-G", quote(v.Generator))
		}
	}
	if flags := strings.TrimSpace(v.CMakeFlags); flags != "" {
		args = append(args, flags)
	}
	return strings.Join(args, " ")
}

func (c *CMake) compileCommand(job Job) string {
	cmd := "cmake --build . --config " + job.buildType()
	if job.Variant.IsVisualStudio() {
		return cmd
	}
	return fmt.Sprintf("%s -- -j%d", cmd, job.workers())
}

func (c *CMake) env(job Job) map[string]string {
	env := regressionEnv(job)
	if !job.Variant.IsVisualStudio() {
		env["CCACHE_BASEDIR"] = job.SourceDir
		env["CCACHE_SLOPPINESS"] = "file_macro,time_macros"
	}
	return env
}

// Package runs cpack once per configured generator.
func (c *CMake) Package(ctx context.Context, job Job) (PackageOutcome, error) {
	generators := job.Variant.PackageGenerators
	if len(generators) == 0 {
		return PackageOutcome{}, nil
	}

	var stdout, stderr strings.Builder
	exitCode := 0
	for _, gen := range generators {
		c.log.Info("[CMake] Packaging with %s", gen)
		res, err := c.run.Run(ctx, []string{fmt.Sprintf("cpack -G %s -C %s", gen, job.buildType())}, runner.Options{Dir: job.BuildDir})
		if err != nil {
			return PackageOutcome{}, spawnError("package", err)
		}
		stdout.WriteString(res.Stdout)
		stderr.WriteString(res.Stderr)
		exitCode += res.ExitCode
	}

	diags, ok := classify.Process(classify.Generator, stdout.String(), stderr.String(), exitCode)
	if !ok {
		if len(diags) == 0 {
			return PackageOutcome{}, fmt.Errorf("%w (exit code %d)", ErrPackageFailed, exitCode)
		}
		c.log.Warn("[CMake] Packaging failed with %d diagnostics", len(diags))
		return PackageOutcome{Diagnostics: diags}, nil
	}

	out := PackageOutcome{Diagnostics: diags}
	for _, m := range packageGenerated.FindAllStringSubmatch(stdout.String(), -1) {
		out.Artifacts = append(out.Artifacts, strings.TrimSpace(m[1]))
	}
	c.log.Info("[CMake] Produced %d packages", len(out.Artifacts))
	return out, nil
}

// Test runs ctest in every configured test directory and reads the reports
// it leaves behind.
func (c *CMake) Test(ctx context.Context, job Job) (TestRun, error) {
	dirs := job.Variant.TestDirs
	if len(dirs) == 0 {
		dirs = []string{""}
	}
	timeout := job.Variant.TestTimeout
	if timeout <= 0 {
		timeout = config.DefaultTestTimeout
	}

	var run TestRun
	for _, sub := range dirs {
		dir := filepath.Join(job.BuildDir, sub)

		// Stale reports from an earlier call would be read twice.
		if err := os.RemoveAll(filepath.Join(dir, "Testing")); err != nil {
			c.log.Warn("[CMake] Could not clear old test reports in %s: %v", dir, err)
		}

		cmd := fmt.Sprintf("ctest -j%d --timeout %d -D ExperimentalTest -C %s", job.workers(), timeout, job.buildType())
		c.log.Info("[CMake] Testing in %s", dir)
		res, err := c.run.Run(ctx, []string{cmd}, runner.Options{Dir: dir, Env: regressionEnv(job)})
		if err != nil {
			return run, spawnError("test", err)
		}
		if !res.Success() {
			c.log.Debug("[CMake] ctest exited with %d", res.ExitCode)
		}

		report, err := testreport.ReadDir(filepath.Join(dir, "Testing"), job.TestTag)
		if err != nil {
			c.log.Warn("[CMake] Test reports in %s: %v", dir, err)
		}
		run.Outcomes = append(run.Outcomes, report.Outcomes...)
		run.Annotations = append(run.Annotations, report.Annotations...)
	}

	counts := diagnostic.CountTests(run.Outcomes)
	c.log.Info("[CMake] %d tests, %d passed, %d failed", counts.Total, counts.Passed, counts.Failed)
	return run, nil
}
