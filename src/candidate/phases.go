package candidate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"decent-ci/src/config"
	"decent-ci/src/diagnostic"
	"decent-ci/src/objectstore"
)

// fallbackBuildError is reported when a build fails without any error the
// classifiers recognised.
const fallbackBuildError = "Build failed but no errors were recognised in the tool output"

// coverageFile names the source of diagnostics raised by the coverage tools.
const coverageFile = "lcov"

func (c *Candidate) elapsed(start time.Time) float64 {
	return c.deps.Now().Sub(start).Seconds()
}

// Build configures and compiles variant. Elapsed time accumulates across
// calls.
func (c *Candidate) Build(ctx context.Context, variant config.ToolchainVariant) error {
	_, err := c.build(ctx, variant, c.BuildDir(variant))
	return err
}

// build reports whether the configure and compile steps succeeded. A failed
// build is recorded as diagnostics, not returned as an error.
func (c *Candidate) build(ctx context.Context, variant config.ToolchainVariant, buildDir string) (bool, error) {
	adapter := c.deps.Engine(variant, c.deps.Runner, c.log)

	start := c.deps.Now()
	out, err := adapter.Build(ctx, c.job(variant, buildDir))
	c.timings.Build += c.elapsed(start)
	if err != nil {
		return false, err
	}

	c.buildDiags.AddAll(out.Diagnostics)
	c.tests = append(c.tests, out.Tests...)
	if !out.Success && c.buildDiags.Count(diagnostic.SeverityError) == 0 {
		c.buildDiags.Add(diagnostic.New("CMakeLists.txt", 0, 0, diagnostic.SeverityError, fallbackBuildError))
	}

	if strings.EqualFold(variant.BuildType, config.DefaultBuildType) {
		c.releaseAttempted = true
		c.releaseBuilt = out.Success
	}
	c.advance(Built)
	return out.Success, nil
}

// ShouldPackage reports whether variant packages this candidate.
func (c *Candidate) ShouldPackage(variant config.ToolchainVariant) bool {
	if variant.SkipPackaging || variant.AnalyzeOnly || variant.IsStaticAnalysis() {
		return false
	}
	return c.IsRelease() || c.cfg.ForcePackaging
}

// Package builds installable artifacts. Variants not built in release mode
// get a separate release build first, at most once per variant.
func (c *Candidate) Package(ctx context.Context, variant config.ToolchainVariant) error {
	if !c.ShouldPackage(variant) {
		return nil
	}

	release := variant
	release.BuildType = config.DefaultBuildType
	buildDir := c.BuildDir(variant)
	if !strings.EqualFold(variant.BuildType, config.DefaultBuildType) {
		buildDir = c.BuildDir(release)
	}
	if !c.releaseAttempted {
		if _, err := c.build(ctx, release, buildDir); err != nil {
			return err
		}
	}
	if !c.releaseBuilt {
		c.log.Warn("[Package] Release build of %s failed, skipping packaging", variant.DeviceID())
		return nil
	}

	adapter := c.deps.Engine(release, c.deps.Runner, c.log)
	start := c.deps.Now()
	out, err := adapter.Package(ctx, c.job(release, buildDir))
	c.timings.Package += c.elapsed(start)
	c.packageDiags.AddAll(out.Diagnostics)
	if err != nil {
		return err
	}

	c.artifacts = append(c.artifacts, out.Artifacts...)
	c.artifactDir = buildDir
	c.advance(Packaged)
	return nil
}

// Test runs the variant's tests. Outcomes accumulate across calls.
func (c *Candidate) Test(ctx context.Context, variant config.ToolchainVariant) error {
	adapter := c.deps.Engine(variant, c.deps.Runner, c.log)

	start := c.deps.Now()
	run, err := adapter.Test(ctx, c.job(variant, c.BuildDir(variant)))
	c.timings.Test += c.elapsed(start)
	if err != nil {
		return err
	}

	c.tests = append(c.tests, run.Outcomes...)
	c.annotations = append(c.annotations, run.Annotations...)
	c.advance(Tested)
	return nil
}

// Coverage collects lcov metrics when the variant enables coverage and
// uploads the HTML report when a coverage bucket is configured. A failing
// coverage tool is recorded as a warning and leaves the metrics unset.
func (c *Candidate) Coverage(ctx context.Context, variant config.ToolchainVariant) error {
	if !variant.CoverageEnabled {
		return nil
	}

	start := c.deps.Now()
	defer func() { c.timings.Coverage += c.elapsed(start) }()

	m, err := c.collector.Collect(ctx, variant.Coverage, c.SourceDir, c.BuildDir(variant))
	if err != nil {
		c.log.Warn("[Coverage] %s: %v", variant.DeviceID(), err)
		c.buildDiags.Add(diagnostic.New(coverageFile, 0, 0, diagnostic.SeverityWarning, err.Error()))
		return nil
	}
	c.coverage = &m
	c.advance(CoverageComputed)

	if variant.Coverage.Bucket == "" {
		return nil
	}
	url, err := c.upload(ctx, variant.Coverage.Bucket, variant, m.ReportDir, objectstore.CategoryCoverage)
	if err != nil {
		return fmt.Errorf("failed to upload coverage report: %w", err)
	}
	c.coverageURL = url
	return nil
}

// Upload publishes the packaged artifacts to the variant's bucket.
func (c *Candidate) Upload(ctx context.Context, variant config.ToolchainVariant) error {
	if variant.UploadBucket == "" {
		return nil
	}
	if len(c.artifacts) == 0 {
		c.log.Debug("[Upload] %s produced no artifacts", variant.DeviceID())
		return nil
	}

	for _, name := range c.artifacts {
		url, err := c.upload(ctx, variant.UploadBucket, variant, c.artifactPath(name), objectstore.CategoryBuild)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", name, err)
		}
		c.artifactURLs = append(c.artifactURLs, url)
	}
	c.advance(Uploaded)
	return nil
}

// artifactPath resolves a package name reported by the engine, which may
// already be absolute.
func (c *Candidate) artifactPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.artifactDir, name)
}

func (c *Candidate) upload(ctx context.Context, bucket string, variant config.ToolchainVariant, path, category string) (string, error) {
	if c.deps.Uploader == nil {
		return "", objectstore.ErrNoScript
	}
	return c.deps.Uploader.Upload(ctx, bucket, c.buildName(variant), path, category)
}

func (c *Candidate) buildName(variant config.ToolchainVariant) string {
	ref := c.Ref()
	if c.IsPullRequest() {
		ref = fmt.Sprintf("PullRequest%d", c.PullRequestID)
	}
	sha := c.CommitSHA
	if len(sha) > 10 {
		sha = sha[:10]
	}
	return strings.Trim(strings.Join([]string{strings.ReplaceAll(ref, "/", "-"), sha, variant.DeviceID()}, "-"), "-")
}

// RunVariant resets per-variant state and runs every phase of variant
// between a pending and a final report. A failed build skips the remaining
// phases. Errors and panics escaping a phase are recorded as the unhandled
// failure; only reporting errors are returned.
func (c *Candidate) RunVariant(ctx context.Context, variant config.ToolchainVariant) error {
	c.NextBuild()
	c.log.Info("[Candidate] Building %s with %s", c.Identity, variant.DeviceID())

	if err := c.PostResults(ctx, variant, true); err != nil {
		return err
	}

	if err := c.runPhases(ctx, variant); err != nil {
		c.log.Error("[Candidate] %s/%s: unhandled failure: %v", c.Identity, variant.DeviceID(), err)
		c.unhandled = err
	}

	return c.PostResults(ctx, variant, false)
}

func (c *Candidate) runPhases(ctx context.Context, variant config.ToolchainVariant) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if !c.checkedOut {
		return nil
	}

	built, err := c.build(ctx, variant, c.BuildDir(variant))
	if err != nil {
		return err
	}
	if !built {
		c.log.Warn("[Candidate] %s/%s: build failed, skipping later phases", c.Identity, variant.DeviceID())
		return nil
	}
	if variant.AnalyzeOnly || variant.IsStaticAnalysis() {
		return nil
	}

	phases := []struct {
		name string
		run  func(context.Context, config.ToolchainVariant) error
	}{
		{"test", c.Test},
		{"package", c.Package},
		{"coverage", c.Coverage},
		{"upload", c.Upload},
	}
	for _, p := range phases {
		if err := p.run(ctx, variant); err != nil {
			return fmt.Errorf("%s phase: %w", p.name, err)
		}
	}
	return nil
}
