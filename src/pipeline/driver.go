package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"decent-ci/src/candidate"
	"decent-ci/src/config"
	"decent-ci/src/discovery"
	"decent-ci/src/engine"
	"decent-ci/src/logger"
)

// Stats summarizes a driver run.
type Stats struct {
	Candidates int
	Variants   int
	// Failed counts variants whose reporting failed and candidates that
	// could not be constructed.
	Failed int
}

// Driver builds work items sequentially. Regression baselines are built
// before the candidates that compare against them.
type Driver struct {
	cfg     *config.Config
	workDir string
	deps    candidate.Deps
	log     logger.Logger

	// baselines maps a ref to the finished build of each device on it.
	baselines map[string]map[string]engine.Baseline
}

// NewDriver creates a Driver checking out candidates below workDir.
func NewDriver(cfg *config.Config, workDir string, deps candidate.Deps) *Driver {
	return &Driver{
		cfg:       cfg,
		workDir:   workDir,
		deps:      deps,
		log:       logger.OrDefault(deps.Log),
		baselines: make(map[string]map[string]engine.Baseline),
	}
}

// baselineRef is the ref id compares against, if any. Pull requests
// compare against their base branch.
func (d *Driver) baselineRef(id candidate.Identity) (string, bool) {
	if id.IsPullRequest() {
		return id.BaseRef, id.BaseRef != ""
	}
	if id.IsRelease() {
		return "", false
	}
	return d.cfg.BaselineFor(id.BranchName)
}

// Order returns work with every baseline branch ahead of the items that
// depend on it. The relative order is otherwise kept.
func (d *Driver) Order(work []discovery.Work) []discovery.Work {
	needed := map[string]bool{}
	for _, w := range work {
		if ref, ok := d.baselineRef(w.Identity); ok {
			needed[ref] = true
		}
	}

	var first, rest []discovery.Work
	for _, w := range work {
		id := w.Identity
		if !id.IsPullRequest() && !id.IsRelease() && needed[id.BranchName] {
			first = append(first, w)
		} else {
			rest = append(rest, w)
		}
	}
	return append(first, rest...)
}

// Run builds every work item. Errors are logged and counted; one failing
// candidate never stops the others.
func (d *Driver) Run(ctx context.Context, work []discovery.Work) Stats {
	var stats Stats
	for _, w := range d.Order(work) {
		if ctx.Err() != nil {
			break
		}
		stats.Candidates++

		c, err := candidate.New(w.Identity, d.cfg, d.workDir, d.deps)
		if err != nil {
			d.log.Error("[Pipeline] Could not create candidate %s: %v", w.Identity, err)
			stats.Failed++
			continue
		}
		// Checkout failures are reported through every variant.
		_ = c.Checkout(ctx)

		for _, v := range w.Variants {
			stats.Variants++
			c.Baseline = d.baselineFor(w.Identity, v)
			if err := c.RunVariant(ctx, v); err != nil {
				d.log.Error("[Pipeline] %s/%s: %v", w.Identity, v.DeviceID(), err)
				stats.Failed++
				continue
			}
			d.recordBaseline(c, v)
		}
	}
	d.log.Info("[Pipeline] Built %d variants of %d candidates, %d failed", stats.Variants, stats.Candidates, stats.Failed)
	return stats
}

func (d *Driver) baselineFor(id candidate.Identity, v config.ToolchainVariant) *engine.Baseline {
	if v.SkipRegression {
		return nil
	}
	ref, ok := d.baselineRef(id)
	if !ok {
		return nil
	}
	b, ok := d.baselines[ref][v.DeviceID()]
	if !ok {
		d.log.Debug("[Pipeline] No %s baseline on %s for %s", v.DeviceID(), ref, id)
		return nil
	}
	return &b
}

func (d *Driver) recordBaseline(c *candidate.Candidate, v config.ToolchainVariant) {
	if c.IsPullRequest() || c.IsRelease() || c.Unhandled() != nil {
		return
	}
	devices, ok := d.baselines[c.BranchName]
	if !ok {
		devices = make(map[string]engine.Baseline)
		d.baselines[c.BranchName] = devices
	}
	devices[v.DeviceID()] = engine.Baseline{
		BuildDir:      c.BuildDir(v),
		RegressionDir: filepath.Join(d.workDir, "regressions", strings.ReplaceAll(c.BranchName, "/", "-")),
		CommitSHA:     c.CommitSHA,
	}
}
