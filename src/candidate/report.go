package candidate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"decent-ci/src/broker"
	"decent-ci/src/config"
	"decent-ci/src/contracts"
	"decent-ci/src/diagnostic"
	"decent-ci/src/gate"
	"decent-ci/src/provider"
	"decent-ci/src/ranking"
	"decent-ci/src/results"
)

// assetAttempts bounds release asset uploads.
const assetAttempts = 3

// Report snapshots the candidate state for variant.
func (c *Candidate) Report(variant config.ToolchainVariant, pending bool) results.Report {
	r := results.Report{
		Repository:    c.Repository,
		Branch:        c.BranchName,
		Tag:           c.TagName,
		CommitSHA:     c.CommitSHA,
		PullRequestID: c.PullRequestID,
		Variant:       variant,
		Pending:       pending,
		Date:          c.date,
		Build:         c.buildDiags.Items(),
		Package:       c.packageDiags.Items(),
		Tests:         c.Tests(),
		Annotations:   append([]diagnostic.TestAnnotation(nil), c.annotations...),
		Coverage:      c.coverage,
		CoverageURL:   c.coverageURL,
		Artifacts:     c.Artifacts(),
		ArtifactURLs:  append([]string(nil), c.artifactURLs...),
		Timings:       c.timings,
	}
	if c.unhandled != nil {
		r.Unhandled = c.unhandled.Error()
	}
	return r
}

// PostResults writes the variant's document to the archive. The pending
// report creates the document; the final report updates it and also posts
// the comment, the commit status and any release assets. Both publish a
// report event when a publisher is configured.
func (c *Candidate) PostResults(ctx context.Context, variant config.ToolchainVariant, pending bool) error {
	if !pending && c.resultsID == "" {
		return ErrMissingResultsID
	}

	report := c.Report(variant, pending)
	doc := results.NewDocument(report, c.cfg.Thresholds)
	path := results.Path(c.cfg.ResultsPath, report)

	var id string
	var err error
	if c.resultsID == "" {
		id, err = c.deps.Archive.Create(ctx, path, doc)
	} else {
		id, err = c.deps.Archive.Update(ctx, c.resultsID, path, doc)
	}
	if err != nil {
		c.log.Error("[Report] Failed to archive results for %s: %v", variant.DeviceID(), err)
		return fmt.Errorf("failed to archive results: %w", err)
	}
	c.resultsID = id
	c.advance(PendingReported)

	if !pending {
		if err := c.postFinal(ctx, variant, doc); err != nil {
			c.log.Error("[Report] %s/%s: %v", c.Identity, variant.DeviceID(), err)
			return err
		}
		c.state = FinalReported
	}

	if err := c.publish(ctx, id, path, doc); err != nil {
		c.log.Error("[Report] Failed to publish report event: %v", err)
		return err
	}
	return nil
}

func (c *Candidate) postFinal(ctx context.Context, variant config.ToolchainVariant, doc results.Document) error {
	if err := c.postComment(ctx, doc); err != nil {
		return err
	}
	if err := c.postStatus(ctx, variant, doc.FrontMatter.Summary); err != nil {
		return err
	}
	if c.IsRelease() && len(c.artifacts) > 0 {
		if err := c.uploadReleaseAssets(ctx); err != nil {
			return err
		}
	}
	return nil
}

// postComment comments on the commit for builds of the canonical
// repository and on the pull request otherwise.
func (c *Candidate) postComment(ctx context.Context, doc results.Document) error {
	body := results.Comment(doc, ranking.DefaultLimit)

	if c.Repository == c.cfg.Repository || !c.IsPullRequest() {
		return c.deps.Gate.Call(ctx, "create commit comment", func(ctx context.Context) error {
			return c.deps.Platform.CreateCommitComment(ctx, c.Repository, c.CommitSHA, body)
		})
	}
	return c.deps.Gate.Call(ctx, "create issue comment", func(ctx context.Context) error {
		return c.deps.Platform.CreateIssueComment(ctx, c.cfg.Repository, c.PullRequestID, body)
	})
}

func (c *Candidate) postStatus(ctx context.Context, variant config.ToolchainVariant, s results.Summary) error {
	status := provider.Status{
		Context:     variant.StatusContext(),
		State:       s.State(false),
		Description: s.Description(false),
		TargetURL:   c.coverageURL,
	}
	return c.deps.Gate.Call(ctx, "create status", func(ctx context.Context) error {
		return c.deps.Platform.CreateStatus(ctx, c.StatusRepository(), c.CommitSHA, status)
	})
}

func (c *Candidate) uploadReleaseAssets(ctx context.Context) error {
	release, err := gate.Do(ctx, c.deps.Gate, "get release", func(ctx context.Context) (*provider.Release, error) {
		return c.deps.Platform.ReleaseByTag(ctx, c.Repository, c.TagName)
	})
	if err != nil {
		return fmt.Errorf("failed to look up release %s: %w", c.TagName, err)
	}

	for _, name := range c.artifacts {
		if err := c.uploadAsset(ctx, release.ID, c.artifactPath(name)); err != nil {
			return err
		}
	}
	return nil
}

// uploadAsset attaches path to the release. A conflict on the first try
// means the asset was published earlier and is left alone. Other failures,
// and uploads that did not reach the uploaded state, remove the partial
// asset before trying again.
func (c *Candidate) uploadAsset(ctx context.Context, releaseID int64, path string) error {
	name := filepath.Base(path)

	var lastErr error
	for attempt := 1; attempt <= assetAttempts; attempt++ {
		asset, err := gate.Do(ctx, c.deps.Gate, "upload release asset", func(ctx context.Context) (*provider.Asset, error) {
			return c.deps.Platform.UploadReleaseAsset(ctx, c.Repository, releaseID, path)
		})
		if err == nil && asset != nil && asset.State == provider.AssetUploaded {
			c.log.Info("[Report] Uploaded release asset %s", name)
			return nil
		}

		switch {
		case err != nil && errors.Is(err, provider.ErrConflict) && attempt == 1:
			return fmt.Errorf("release asset %s already exists: %w", name, err)
		case err != nil:
			lastErr = err
		default:
			lastErr = fmt.Errorf("release asset %s ended in state %q", name, assetState(asset))
		}
		c.log.Warn("[Report] Upload of %s failed (attempt %d/%d): %v", name, attempt, assetAttempts, lastErr)

		if err := c.deletePartialAsset(ctx, releaseID, name); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed to upload release asset %s after %d attempts: %w", name, assetAttempts, lastErr)
}

func assetState(a *provider.Asset) string {
	if a == nil {
		return ""
	}
	return a.State
}

func (c *Candidate) deletePartialAsset(ctx context.Context, releaseID int64, name string) error {
	assets, err := gate.Do(ctx, c.deps.Gate, "list release assets", func(ctx context.Context) ([]provider.Asset, error) {
		return c.deps.Platform.ListReleaseAssets(ctx, c.Repository, releaseID)
	})
	if err != nil {
		return fmt.Errorf("failed to list release assets: %w", err)
	}

	for _, a := range assets {
		if a.Name != name {
			continue
		}
		id := a.ID
		if err := c.deps.Gate.Call(ctx, "delete release asset", func(ctx context.Context) error {
			return c.deps.Platform.DeleteReleaseAsset(ctx, c.Repository, id)
		}); err != nil {
			return fmt.Errorf("failed to delete partial asset %s: %w", name, err)
		}
		c.log.Debug("[Report] Deleted partial asset %s (%d)", name, id)
	}
	return nil
}

func (c *Candidate) publish(ctx context.Context, id, path string, doc results.Document) error {
	if c.deps.Publisher == nil {
		return nil
	}

	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	fm := doc.FrontMatter
	return broker.PublishReport(ctx, c.deps.Publisher, contracts.ReportEvent{
		ID:            id,
		Path:          path,
		Repository:    fm.Repository,
		Ref:           c.Ref(),
		CommitSHA:     fm.CommitSHA,
		PullRequestID: fm.PullRequestID,
		DeviceID:      fm.DeviceID,
		Status:        string(fm.Status),
		Pending:       fm.Pending,
		PublishedAt:   c.deps.Now(),
		Document:      data,
	})
}
