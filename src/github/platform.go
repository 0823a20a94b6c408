package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"decent-ci/src/provider"
)

// maxStatusDescription is GitHub's limit on status descriptions.
const maxStatusDescription = 140

var _ provider.Platform = (*Client)(nil)

// ListReleases returns every release, drafts included.
func (c *Client) ListReleases(ctx context.Context, repo string) ([]provider.Release, error) {
	items, err := getAll[apiRelease](ctx, c, repoPath(repo, "/releases"), nil)
	if err != nil {
		return nil, fmt.Errorf("list releases of %s: %w", repo, err)
	}
	releases := make([]provider.Release, 0, len(items))
	for _, r := range items {
		releases = append(releases, toRelease(r))
	}
	return releases, nil
}

// ReleaseByTag looks up the release of a tag.
func (c *Client) ReleaseByTag(ctx context.Context, repo, tag string) (*provider.Release, error) {
	var r apiRelease
	if err := c.getJSON(ctx, c.baseURL+repoPath(repo, "/releases/tags/", url.PathEscape(tag)), &r); err != nil {
		return nil, fmt.Errorf("get release %s of %s: %w", tag, repo, err)
	}
	release := toRelease(r)
	return &release, nil
}

func toRelease(r apiRelease) provider.Release {
	return provider.Release{
		ID:          r.ID,
		TagName:     r.TagName,
		Name:        r.Name,
		Draft:       r.Draft,
		Prerelease:  r.Prerelease,
		CreatedAt:   r.CreatedAt,
		PublishedAt: r.PublishedAt,
		HTMLURL:     r.HTMLURL,
	}
}

// ListBranches returns every branch with the date of its head commit.
func (c *Client) ListBranches(ctx context.Context, repo string) ([]provider.Branch, error) {
	items, err := getAll[apiBranch](ctx, c, repoPath(repo, "/branches"), nil)
	if err != nil {
		return nil, fmt.Errorf("list branches of %s: %w", repo, err)
	}

	branches := make([]provider.Branch, 0, len(items))
	for _, b := range items {
		var commit apiCommit
		if err := c.getJSON(ctx, c.baseURL+repoPath(repo, "/commits/", b.Commit.SHA), &commit); err != nil {
			return nil, fmt.Errorf("get head commit of %s: %w", b.Name, err)
		}
		branches = append(branches, provider.Branch{
			Name:        b.Name,
			SHA:         b.Commit.SHA,
			CommittedAt: commit.Commit.Committer.Date,
		})
	}
	return branches, nil
}

// ListPullRequests returns the open pull requests.
func (c *Client) ListPullRequests(ctx context.Context, repo string) ([]provider.PullRequest, error) {
	items, err := getAll[apiPull](ctx, c, repoPath(repo, "/pulls"), url.Values{"state": {"open"}})
	if err != nil {
		return nil, fmt.Errorf("list pull requests of %s: %w", repo, err)
	}

	pulls := make([]provider.PullRequest, 0, len(items))
	for _, p := range items {
		pr := provider.PullRequest{
			Number:    p.Number,
			Title:     p.Title,
			HeadSHA:   p.Head.SHA,
			HeadRef:   p.Head.Ref,
			BaseRef:   p.Base.Ref,
			UpdatedAt: p.UpdatedAt,
		}
		// A deleted fork leaves head.repo empty.
		if p.Head.Repo != nil {
			pr.HeadRepo = p.Head.Repo.FullName
		}
		if p.Base.Repo != nil {
			pr.BaseRepo = p.Base.Repo.FullName
		}
		pulls = append(pulls, pr)
	}
	return pulls, nil
}

// GetContent reads a file; a missing file yields provider.ErrNotFound.
func (c *Client) GetContent(ctx context.Context, repo, path, ref string) (*provider.FileContent, error) {
	rawURL := c.baseURL + repoPath(repo, "/contents/", escapePath(path))
	if ref != "" {
		rawURL += "?ref=" + url.QueryEscape(ref)
	}

	var content apiContent
	if err := c.getJSON(ctx, rawURL, &content); err != nil {
		return nil, fmt.Errorf("get %s from %s: %w", path, repo, err)
	}

	data := []byte(content.Content)
	if content.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		data = decoded
	}
	return &provider.FileContent{Path: content.Path, SHA: content.SHA, Content: data}, nil
}

// PutContent creates (empty SHA) or updates a file.
func (c *Client) PutContent(ctx context.Context, repo string, req provider.PutContent) (string, error) {
	body := apiPutContent{
		Message: req.Message,
		Content: base64.StdEncoding.EncodeToString(req.Content),
		SHA:     req.SHA,
		Branch:  req.Branch,
	}
	var out apiPutContentResponse
	rawURL := c.baseURL + repoPath(repo, "/contents/", escapePath(req.Path))
	if err := c.sendJSON(ctx, http.MethodPut, rawURL, body, &out, http.StatusOK, http.StatusCreated); err != nil {
		return "", fmt.Errorf("put %s to %s: %w", req.Path, repo, err)
	}
	return out.Content.SHA, nil
}

// CreateCommitComment comments on a commit.
func (c *Client) CreateCommitComment(ctx context.Context, repo, sha, body string) error {
	rawURL := c.baseURL + repoPath(repo, "/commits/", sha, "/comments")
	if err := c.sendJSON(ctx, http.MethodPost, rawURL, apiComment{Body: body}, nil, http.StatusCreated); err != nil {
		return fmt.Errorf("comment on %s@%s: %w", repo, sha, err)
	}
	return nil
}

// CreateIssueComment comments on an issue or pull request.
func (c *Client) CreateIssueComment(ctx context.Context, repo string, number int, body string) error {
	rawURL := c.baseURL + repoPath(repo, "/issues/", strconv.Itoa(number), "/comments")
	if err := c.sendJSON(ctx, http.MethodPost, rawURL, apiComment{Body: body}, nil, http.StatusCreated); err != nil {
		return fmt.Errorf("comment on %s#%d: %w", repo, number, err)
	}
	return nil
}

// CreateStatus sets a commit status.
func (c *Client) CreateStatus(ctx context.Context, repo, sha string, status provider.Status) error {
	desc := status.Description
	if len(desc) > maxStatusDescription {
		desc = desc[:maxStatusDescription-3] + "..."
	}
	body := apiStatus{
		Context:     status.Context,
		State:       string(status.State),
		Description: desc,
		TargetURL:   status.TargetURL,
	}
	rawURL := c.baseURL + repoPath(repo, "/statuses/", sha)
	if err := c.sendJSON(ctx, http.MethodPost, rawURL, body, nil, http.StatusCreated); err != nil {
		return fmt.Errorf("set status %s on %s@%s: %w", status.Context, repo, sha, err)
	}
	return nil
}

// CombinedStatus returns every status on ref.
func (c *Client) CombinedStatus(ctx context.Context, repo, ref string) (*provider.CombinedStatus, error) {
	var cs apiCombinedStatus
	rawURL := c.baseURL + repoPath(repo, "/commits/", url.PathEscape(ref), "/status") + "?per_page=" + strconv.Itoa(perPage)
	if err := c.getJSON(ctx, rawURL, &cs); err != nil {
		return nil, fmt.Errorf("get status of %s@%s: %w", repo, ref, err)
	}

	out := &provider.CombinedStatus{SHA: cs.SHA, State: provider.StatusState(cs.State)}
	for _, s := range cs.Statuses {
		out.Statuses = append(out.Statuses, provider.Status{
			Context:     s.Context,
			State:       provider.StatusState(s.State),
			Description: s.Description,
			TargetURL:   s.TargetURL,
		})
	}
	return out, nil
}

// ListReleaseAssets returns the assets attached to a release.
func (c *Client) ListReleaseAssets(ctx context.Context, repo string, releaseID int64) ([]provider.Asset, error) {
	items, err := getAll[apiAsset](ctx, c, repoPath(repo, "/releases/", strconv.FormatInt(releaseID, 10), "/assets"), nil)
	if err != nil {
		return nil, fmt.Errorf("list assets of release %d: %w", releaseID, err)
	}
	assets := make([]provider.Asset, 0, len(items))
	for _, a := range items {
		assets = append(assets, toAsset(a))
	}
	return assets, nil
}

// UploadReleaseAsset uploads the file at path under its base name.
func (c *Client) UploadReleaseAsset(ctx context.Context, repo string, releaseID int64, path string) (*provider.Asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := filepath.Base(path)
	rawURL := c.uploadURL + repoPath(repo, "/releases/", strconv.FormatInt(releaseID, 10), "/assets") +
		"?name=" + url.QueryEscape(name)

	resp, err := c.do(ctx, http.MethodPost, rawURL, file, "application/octet-stream", http.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	var a apiAsset
	if err := jsonDecode(resp, &a); err != nil {
		return nil, fmt.Errorf("decode uploaded asset %s: %w", name, err)
	}
	asset := toAsset(a)
	return &asset, nil
}

// DeleteReleaseAsset removes an asset.
func (c *Client) DeleteReleaseAsset(ctx context.Context, repo string, assetID int64) error {
	rawURL := c.baseURL + repoPath(repo, "/releases/assets/", strconv.FormatInt(assetID, 10))
	resp, err := c.do(ctx, http.MethodDelete, rawURL, nil, "", http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("delete asset %d: %w", assetID, err)
	}
	resp.Body.Close()
	return nil
}

func toAsset(a apiAsset) provider.Asset {
	return provider.Asset{
		ID:          a.ID,
		Name:        a.Name,
		State:       a.State,
		Size:        a.Size,
		DownloadURL: a.BrowserDownloadURL,
	}
}
