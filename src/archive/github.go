package archive

import (
	"context"
	"errors"
	"fmt"

	"decent-ci/src/gate"
	"decent-ci/src/logger"
	"decent-ci/src/provider"
	"decent-ci/src/results"
)

// GitHubArchive commits documents to a results repository. The identifier
// of a document is the blob SHA of its current revision.
type GitHubArchive struct {
	platform provider.Platform
	gate     *gate.Gate
	repo     string
	branch   string
	log      logger.Logger
}

// NewGitHubArchive creates an archive writing to branch of repo. An empty
// branch uses the repository default.
func NewGitHubArchive(platform provider.Platform, g *gate.Gate, repo, branch string, log logger.Logger) *GitHubArchive {
	return &GitHubArchive{platform: platform, gate: g, repo: repo, branch: branch, log: logger.OrDefault(log)}
}

// Create writes doc to path. A file already present at path, e.g. from an
// earlier run on the same day, is overwritten.
func (a *GitHubArchive) Create(ctx context.Context, path string, doc results.Document) (string, error) {
	existing, err := gate.Do(ctx, a.gate, "get results file", func(ctx context.Context) (*provider.FileContent, error) {
		return a.platform.GetContent(ctx, a.repo, path, a.branch)
	})
	sha := ""
	switch {
	case err == nil:
		sha = existing.SHA
		a.log.Debug("[Archive] Replacing existing %s", path)
	case !errors.Is(err, provider.ErrNotFound):
		return "", fmt.Errorf("failed to look up %s: %w", path, err)
	}
	return a.put(ctx, sha, path, doc)
}

// Update writes a new revision of the document whose current blob is id.
func (a *GitHubArchive) Update(ctx context.Context, id, path string, doc results.Document) (string, error) {
	return a.put(ctx, id, path, doc)
}

func (a *GitHubArchive) put(ctx context.Context, sha, path string, doc results.Document) (string, error) {
	data, err := doc.Marshal()
	if err != nil {
		return "", err
	}

	fm := doc.FrontMatter
	state := "final"
	if fm.Pending {
		state = "pending"
	}
	req := provider.PutContent{
		Path:    path,
		Message: fmt.Sprintf("%s results for %s (%s)", state, fm.DeviceID, fm.CommitSHA),
		Content: data,
		SHA:     sha,
		Branch:  a.branch,
	}

	newSHA, err := gate.Do(ctx, a.gate, "put results file", func(ctx context.Context) (string, error) {
		return a.platform.PutContent(ctx, a.repo, req)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.log.Info("[Archive] Wrote %s results to %s/%s", state, a.repo, path)
	return newSHA, nil
}
