// Package candidate drives one buildable unit (a branch, a release or an
// external pull request) through checkout, build, test, packaging,
// coverage, upload and reporting for each toolchain variant.
//
// A Candidate is used by a single goroutine. Per-variant state is reset by
// NextBuild before each variant so results never leak between variants.
package candidate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"decent-ci/src/archive"
	"decent-ci/src/config"
	"decent-ci/src/contracts"
	"decent-ci/src/coverage"
	"decent-ci/src/diagnostic"
	"decent-ci/src/engine"
	"decent-ci/src/gate"
	"decent-ci/src/logger"
	"decent-ci/src/objectstore"
	"decent-ci/src/provider"
	"decent-ci/src/results"
	"decent-ci/src/runner"
)

// ErrMissingResultsID is returned when a final report is posted before the
// pending report created the archive document.
var ErrMissingResultsID = errors.New("final report requires the id of a pending report")

// State is the lifecycle position of a candidate for the current variant.
type State int

const (
	Fresh State = iota
	CheckedOut
	Built
	Packaged
	Tested
	CoverageComputed
	Uploaded
	PendingReported
	FinalReported
)

var stateNames = [...]string{
	Fresh:            "fresh",
	CheckedOut:       "checked_out",
	Built:            "built",
	Packaged:         "packaged",
	Tested:           "tested",
	CoverageComputed: "coverage_computed",
	Uploaded:         "uploaded",
	PendingReported:  "pending_reported",
	FinalReported:    "final_reported",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Identity names what is being built.
type Identity struct {
	Repository string
	TagName    string
	CommitSHA  string
	BranchName string

	// PullRequestID is zero for branches and releases.
	PullRequestID  int
	BaseRepository string
	BaseRef        string
}

// Ref returns the tag for releases and the branch otherwise.
func (id Identity) Ref() string {
	if id.TagName != "" {
		return id.TagName
	}
	return id.BranchName
}

// IsRelease reports whether the candidate is a tagged release.
func (id Identity) IsRelease() bool {
	return id.TagName != ""
}

// IsPullRequest reports whether the candidate is a pull request head.
func (id Identity) IsPullRequest() bool {
	return id.PullRequestID != 0
}

// Applies reports whether variant runs for this candidate.
func (id Identity) Applies(variant config.ToolchainVariant) bool {
	return !variant.ReleaseOnly || id.IsRelease()
}

// StatusRepository is where commit statuses are written: the base
// repository for pull requests from forks.
func (id Identity) StatusRepository() string {
	if id.BaseRepository != "" && id.BaseRepository != id.Repository {
		return id.BaseRepository
	}
	return id.Repository
}

// commitRef identifies the build to regression scripts.
func (id Identity) commitRef() string {
	if id.TagName != "" {
		return id.TagName
	}
	return id.CommitSHA
}

func (id Identity) String() string {
	if id.IsPullRequest() {
		return fmt.Sprintf("%s#%d", id.BaseRepository, id.PullRequestID)
	}
	return id.Repository + "@" + id.Ref()
}

// Deps are the collaborators of a candidate. Publisher, Uploader and
// Engine are optional.
type Deps struct {
	Runner    runner.Runner
	Platform  provider.Platform
	Gate      *gate.Gate
	Archive   archive.Archive
	Publisher contracts.Publisher
	Uploader  objectstore.Uploader
	Log       logger.Logger

	// Engine selects the build engine of a variant; engine.For when nil.
	Engine func(config.ToolchainVariant, runner.Runner, logger.Logger) engine.Adapter

	// Now is time.Now when nil.
	Now func() time.Time
}

// Candidate is one buildable unit and everything learned about it for the
// current variant.
type Candidate struct {
	Identity

	// SourceDir is the checkout; build directories live inside it.
	SourceDir string

	// Baseline is the regression reference handed to the engine, if any.
	Baseline *engine.Baseline

	cfg       *config.Config
	deps      Deps
	log       logger.Logger
	collector *coverage.Collector

	checkedOut  bool
	checkoutErr error

	state        State
	buildDiags   *diagnostic.Set
	packageDiags *diagnostic.Set
	tests        []diagnostic.TestOutcome
	annotations  []diagnostic.TestAnnotation
	timings      results.Timings
	coverage     *coverage.Metrics
	coverageURL  string
	artifacts    []string
	artifactDir  string
	artifactURLs []string
	unhandled    error
	resultsID    string
	date         time.Time

	// A release-mode build ran for the current variant, and whether it
	// succeeded.
	releaseAttempted bool
	releaseBuilt     bool
}

// New creates a candidate checked out below workDir. A missing
// configuration aborts construction.
func New(id Identity, cfg *config.Config, workDir string, deps Deps) (*Candidate, error) {
	if cfg == nil {
		return nil, config.ErrNoConfig
	}
	if len(cfg.Variants) == 0 {
		return nil, config.ErrNoVariants
	}
	if id.Repository == "" {
		return nil, errors.New("candidate has no repository")
	}
	if id.IsPullRequest() && id.BaseRepository == "" {
		return nil, fmt.Errorf("pull request %d has no base repository", id.PullRequestID)
	}
	if deps.Runner == nil || deps.Archive == nil || deps.Platform == nil {
		return nil, errors.New("candidate requires a runner, a platform and an archive")
	}

	if deps.Engine == nil {
		deps.Engine = engine.For
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Gate == nil {
		deps.Gate = gate.New(deps.Platform, deps.Log)
	}
	log := logger.OrDefault(deps.Log)

	c := &Candidate{
		Identity:     id,
		SourceDir:    filepath.Join(workDir, dirName(id)),
		cfg:          cfg,
		deps:         deps,
		log:          log,
		collector:    coverage.NewCollector(deps.Runner, log),
		buildDiags:   diagnostic.NewSet(),
		packageDiags: diagnostic.NewSet(),
	}
	c.NextBuild()
	return c, nil
}

func dirName(id Identity) string {
	name := strings.ReplaceAll(id.Repository, "/", "-")
	if id.IsPullRequest() {
		return fmt.Sprintf("%s-PullRequest%d", name, id.PullRequestID)
	}
	return name + "-" + strings.NewReplacer("/", "-", " ", "-").Replace(id.Ref())
}

// State returns the lifecycle state for the current variant.
func (c *Candidate) State() State {
	return c.state
}

// ResultsID is the archive id of the current variant's document.
func (c *Candidate) ResultsID() string {
	return c.resultsID
}

// Unhandled is the error that escaped a phase of the current variant.
func (c *Candidate) Unhandled() error {
	return c.unhandled
}

// BuildDiagnostics returns a sorted copy of the build-phase diagnostics.
func (c *Candidate) BuildDiagnostics() []diagnostic.Diagnostic {
	return c.buildDiags.Items()
}

// PackageDiagnostics returns a sorted copy of the package-phase diagnostics.
func (c *Candidate) PackageDiagnostics() []diagnostic.Diagnostic {
	return c.packageDiags.Items()
}

// Tests returns the test outcomes collected so far.
func (c *Candidate) Tests() []diagnostic.TestOutcome {
	return append([]diagnostic.TestOutcome(nil), c.tests...)
}

// Artifacts returns the package names produced for the current variant.
func (c *Candidate) Artifacts() []string {
	return append([]string(nil), c.artifacts...)
}

// BuildDir is where variant is built.
func (c *Candidate) BuildDir(variant config.ToolchainVariant) string {
	return filepath.Join(c.SourceDir, "build-"+variant.DeviceID())
}

// NextBuild resets all per-variant state. A failed checkout is recorded
// again so every variant reports it.
func (c *Candidate) NextBuild() {
	c.buildDiags.Reset()
	c.packageDiags.Reset()
	c.tests = nil
	c.annotations = nil
	c.timings = results.Timings{}
	c.coverage = nil
	c.coverageURL = ""
	c.artifacts = nil
	c.artifactDir = ""
	c.artifactURLs = nil
	c.releaseAttempted = false
	c.releaseBuilt = false
	c.unhandled = nil
	c.resultsID = ""
	c.date = c.deps.Now()

	c.state = Fresh
	if c.checkedOut {
		c.state = CheckedOut
	}
	if c.checkoutErr != nil {
		c.buildDiags.Add(checkoutDiagnostic(c.checkoutErr))
	}
}

func (c *Candidate) job(variant config.ToolchainVariant, buildDir string) engine.Job {
	return engine.Job{
		Variant:   variant,
		SourceDir: c.SourceDir,
		BuildDir:  buildDir,
		CommitRef: c.commitRef(),
		Baseline:  c.Baseline,
		TestTag:   c.cfg.TestTag,
	}
}

func (c *Candidate) advance(s State) {
	if s > c.state {
		c.state = s
	}
}
