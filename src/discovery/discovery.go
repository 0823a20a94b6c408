// Package discovery finds the releases, branches and external pull requests
// that still need results for at least one toolchain variant.
package discovery

import (
	"context"
	"fmt"
	"time"

	"decent-ci/src/candidate"
	"decent-ci/src/config"
	"decent-ci/src/gate"
	"decent-ci/src/logger"
	"decent-ci/src/provider"
)

// Work is a candidate together with the variants it still needs.
type Work struct {
	Identity candidate.Identity
	Variants []config.ToolchainVariant
}

// Discoverer lists work for the configured repository.
type Discoverer struct {
	platform provider.Platform
	gate     *gate.Gate
	cfg      *config.Config
	log      logger.Logger
	now      func() time.Time
}

// New creates a Discoverer. All platform calls go through g.
func New(platform provider.Platform, g *gate.Gate, cfg *config.Config, log logger.Logger) *Discoverer {
	return &Discoverer{platform: platform, gate: g, cfg: cfg, log: logger.OrDefault(log), now: time.Now}
}

// Discover returns the work list ordered releases, branches, pull requests.
func (d *Discoverer) Discover(ctx context.Context) ([]Work, error) {
	var work []Work
	for _, step := range []func(context.Context) ([]Work, error){d.releases, d.branches, d.pullRequests} {
		found, err := step(ctx)
		if err != nil {
			return nil, err
		}
		work = append(work, found...)
	}
	d.log.Info("[Discovery] %d candidates need results", len(work))
	return work, nil
}

func (d *Discoverer) tooOld(t time.Time, max time.Duration) bool {
	return !t.IsZero() && d.now().Sub(t) > max
}

func (d *Discoverer) releases(ctx context.Context) ([]Work, error) {
	repo := d.cfg.Repository
	releases, err := gate.Do(ctx, d.gate, "list releases", func(ctx context.Context) ([]provider.Release, error) {
		return d.platform.ListReleases(ctx, repo)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}

	var work []Work
	for _, r := range releases {
		if r.Draft {
			continue
		}
		published := r.PublishedAt
		if published.IsZero() {
			published = r.CreatedAt
		}
		if d.tooOld(published, d.cfg.MaxReleaseAge) {
			d.log.Debug("[Discovery] Release %s is too old", r.TagName)
			continue
		}

		id := candidate.Identity{Repository: repo, TagName: r.TagName}
		if w, ok, err := d.pending(ctx, id, r.TagName); err != nil {
			return nil, err
		} else if ok {
			work = append(work, w)
		}
	}
	return work, nil
}

func (d *Discoverer) branches(ctx context.Context) ([]Work, error) {
	repo := d.cfg.Repository
	branches, err := gate.Do(ctx, d.gate, "list branches", func(ctx context.Context) ([]provider.Branch, error) {
		return d.platform.ListBranches(ctx, repo)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	var work []Work
	for _, b := range branches {
		if !d.cfg.AllowsBranch(b.Name) {
			continue
		}
		if d.tooOld(b.CommittedAt, d.cfg.MaxBranchAge) {
			d.log.Debug("[Discovery] Branch %s is too old", b.Name)
			continue
		}

		id := candidate.Identity{Repository: repo, BranchName: b.Name, CommitSHA: b.SHA}
		if w, ok, err := d.pending(ctx, id, b.SHA); err != nil {
			return nil, err
		} else if ok {
			work = append(work, w)
		}
	}
	return work, nil
}

// pullRequests skips pull requests from the repository itself; their
// branches are built as branches.
func (d *Discoverer) pullRequests(ctx context.Context) ([]Work, error) {
	repo := d.cfg.Repository
	prs, err := gate.Do(ctx, d.gate, "list pull requests", func(ctx context.Context) ([]provider.PullRequest, error) {
		return d.platform.ListPullRequests(ctx, repo)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	var work []Work
	for _, pr := range prs {
		if !pr.External() {
			continue
		}
		if d.tooOld(pr.UpdatedAt, d.cfg.MaxPullRequestAge) {
			d.log.Debug("[Discovery] Pull request #%d is too old", pr.Number)
			continue
		}

		base := pr.BaseRepo
		if base == "" {
			base = repo
		}
		id := candidate.Identity{
			Repository:     pr.HeadRepo,
			BranchName:     pr.HeadRef,
			CommitSHA:      pr.HeadSHA,
			PullRequestID:  pr.Number,
			BaseRepository: base,
			BaseRef:        pr.BaseRef,
		}
		if w, ok, err := d.pending(ctx, id, pr.HeadSHA); err != nil {
			return nil, err
		} else if ok {
			work = append(work, w)
		}
	}
	return work, nil
}

// pending keeps the variants of id that have no final status on ref. For
// releases the combined status also supplies the commit SHA.
func (d *Discoverer) pending(ctx context.Context, id candidate.Identity, ref string) (Work, bool, error) {
	repo := id.StatusRepository()
	cs, err := gate.Do(ctx, d.gate, "get combined status", func(ctx context.Context) (*provider.CombinedStatus, error) {
		return d.platform.CombinedStatus(ctx, repo, ref)
	})
	if err != nil {
		return Work{}, false, fmt.Errorf("failed to read statuses of %s: %w", id, err)
	}
	if id.CommitSHA == "" && cs != nil {
		id.CommitSHA = cs.SHA
	}

	w := Work{Identity: id}
	for _, v := range d.cfg.Variants {
		if !id.Applies(v) {
			continue
		}
		if cs.Reported(v.StatusContext()) {
			continue
		}
		w.Variants = append(w.Variants, v)
	}
	if len(w.Variants) == 0 {
		d.log.Debug("[Discovery] %s already reported", id)
		return Work{}, false, nil
	}
	return w, true, nil
}
