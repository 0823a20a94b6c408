package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRepository is returned for repository names that are not
// "owner/name" or a repository URL.
var ErrInvalidRepository = errors.New("invalid repository")

// Platform is the source-control hosting API used by discovery and
// reporting. Repositories are "owner/name".
type Platform interface {
	ListReleases(ctx context.Context, repo string) ([]Release, error)
	ReleaseByTag(ctx context.Context, repo, tag string) (*Release, error)
	ListBranches(ctx context.Context, repo string) ([]Branch, error)
	ListPullRequests(ctx context.Context, repo string) ([]PullRequest, error)

	// GetContent returns ErrNotFound when the file does not exist.
	GetContent(ctx context.Context, repo, path, ref string) (*FileContent, error)

	// PutContent creates or updates a file and returns the new blob SHA.
	PutContent(ctx context.Context, repo string, req PutContent) (string, error)

	CreateCommitComment(ctx context.Context, repo, sha, body string) error
	CreateIssueComment(ctx context.Context, repo string, number int, body string) error
	CreateStatus(ctx context.Context, repo, sha string, status Status) error
	CombinedStatus(ctx context.Context, repo, ref string) (*CombinedStatus, error)

	ListReleaseAssets(ctx context.Context, repo string, releaseID int64) ([]Asset, error)

	// UploadReleaseAsset returns ErrConflict when an asset of the same
	// name already exists.
	UploadReleaseAsset(ctx context.Context, repo string, releaseID int64, path string) (*Asset, error)
	DeleteReleaseAsset(ctx context.Context, repo string, assetID int64) error

	// RateLimit returns the quota reported by the most recent response.
	RateLimit() RateLimit

	// CloneURL returns an authenticated git URL for repo.
	CloneURL(repo string) string
}

var repositoryURLPattern = regexp.MustCompile(`^(?:https?://[^/]+/|git@[^:]+:)([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseRepository normalizes "owner/name", https and ssh repository URLs
// to "owner/name".
func ParseRepository(s string) (string, error) {
	s = strings.TrimSpace(s)
	if matches := repositoryURLPattern.FindStringSubmatch(s); matches != nil {
		return matches[1] + "/" + matches[2], nil
	}

	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepository, s)
	}
	return owner + "/" + strings.TrimSuffix(name, ".git"), nil
}
