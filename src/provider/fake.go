package provider

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
)

// Comment is a comment recorded by FakePlatform. Number is zero for commit
// comments.
type Comment struct {
	Repo   string
	SHA    string
	Number int
	Body   string
}

// RecordedStatus is a status recorded by FakePlatform.
type RecordedStatus struct {
	Repo string
	SHA  string
	Status
}

// FakePlatform is an in-memory Platform intended for tests and dry runs.
// Hooks, when set, replace the default behavior of a method.
type FakePlatform struct {
	mu sync.Mutex

	Releases     map[string][]Release
	Branches     map[string][]Branch
	PullRequests map[string][]PullRequest
	Files        map[string]FileContent // "repo:path"
	Assets       map[int64][]Asset
	Combined     map[string]*CombinedStatus // "repo@sha"

	Comments []Comment
	Statuses []RecordedStatus
	Puts     []PutContent
	Deleted  []int64

	Rate RateLimit

	UploadHook func(releaseID int64, path string, attempt int) (*Asset, error)

	nextAssetID int64
	uploads     int
}

// NewFakePlatform returns an empty FakePlatform.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		Releases:     map[string][]Release{},
		Branches:     map[string][]Branch{},
		PullRequests: map[string][]PullRequest{},
		Files:        map[string]FileContent{},
		Assets:       map[int64][]Asset{},
		Combined:     map[string]*CombinedStatus{},
	}
}

var _ Platform = (*FakePlatform)(nil)

func (f *FakePlatform) ListReleases(ctx context.Context, repo string) ([]Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Release(nil), f.Releases[repo]...), nil
}

func (f *FakePlatform) ReleaseByTag(ctx context.Context, repo, tag string) (*Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.Releases[repo] {
		if r.TagName == tag {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("release %s: %w", tag, ErrNotFound)
}

func (f *FakePlatform) ListBranches(ctx context.Context, repo string) ([]Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Branch(nil), f.Branches[repo]...), nil
}

func (f *FakePlatform) ListPullRequests(ctx context.Context, repo string) ([]PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PullRequest(nil), f.PullRequests[repo]...), nil
}

func (f *FakePlatform) GetContent(ctx context.Context, repo, path, ref string) (*FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc, ok := f.Files[repo+":"+path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return &fc, nil
}

func (f *FakePlatform) PutContent(ctx context.Context, repo string, req PutContent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := repo + ":" + req.Path
	current, exists := f.Files[key]
	if exists && current.SHA != req.SHA {
		return "", fmt.Errorf("%s: sha mismatch: %w", req.Path, ErrConflict)
	}
	if !exists && req.SHA != "" {
		return "", fmt.Errorf("%s: %w", req.Path, ErrNotFound)
	}

	sum := sha1.Sum(append([]byte(req.Path+"\x00"), req.Content...))
	sha := hex.EncodeToString(sum[:])
	f.Files[key] = FileContent{Path: req.Path, SHA: sha, Content: append([]byte(nil), req.Content...)}
	f.Puts = append(f.Puts, req)
	return sha, nil
}

func (f *FakePlatform) CreateCommitComment(ctx context.Context, repo, sha, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Comments = append(f.Comments, Comment{Repo: repo, SHA: sha, Body: body})
	return nil
}

func (f *FakePlatform) CreateIssueComment(ctx context.Context, repo string, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Comments = append(f.Comments, Comment{Repo: repo, Number: number, Body: body})
	return nil
}

func (f *FakePlatform) CreateStatus(ctx context.Context, repo, sha string, status Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Statuses = append(f.Statuses, RecordedStatus{Repo: repo, SHA: sha, Status: status})

	key := repo + "@" + sha
	cs, ok := f.Combined[key]
	if !ok {
		cs = &CombinedStatus{SHA: sha}
		f.Combined[key] = cs
	}
	cs.Statuses = append(cs.Statuses, status)
	return nil
}

func (f *FakePlatform) CombinedStatus(ctx context.Context, repo, ref string) (*CombinedStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cs, ok := f.Combined[repo+"@"+ref]; ok {
		out := *cs
		out.Statuses = append([]Status(nil), cs.Statuses...)
		return &out, nil
	}
	return &CombinedStatus{SHA: ref}, nil
}

func (f *FakePlatform) ListReleaseAssets(ctx context.Context, repo string, releaseID int64) ([]Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Asset(nil), f.Assets[releaseID]...), nil
}

func (f *FakePlatform) UploadReleaseAsset(ctx context.Context, repo string, releaseID int64, path string) (*Asset, error) {
	f.mu.Lock()
	f.uploads++
	attempt := f.uploads
	hook := f.UploadHook
	f.mu.Unlock()

	if hook != nil {
		a, err := hook(releaseID, path, attempt)
		if a != nil {
			f.mu.Lock()
			f.Assets[releaseID] = append(f.Assets[releaseID], *a)
			f.mu.Unlock()
		}
		return a, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(path)
	for _, a := range f.Assets[releaseID] {
		if a.Name == name {
			return nil, fmt.Errorf("asset %s: %w", name, ErrConflict)
		}
	}
	f.nextAssetID++
	a := Asset{ID: f.nextAssetID, Name: name, State: AssetUploaded, DownloadURL: "https://example.invalid/" + name}
	f.Assets[releaseID] = append(f.Assets[releaseID], a)
	return &a, nil
}

func (f *FakePlatform) DeleteReleaseAsset(ctx context.Context, repo string, assetID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, assetID)
	for id, assets := range f.Assets {
		kept := assets[:0]
		for _, a := range assets {
			if a.ID != assetID {
				kept = append(kept, a)
			}
		}
		f.Assets[id] = kept
	}
	return nil
}

func (f *FakePlatform) RateLimit() RateLimit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Rate
}

func (f *FakePlatform) CloneURL(repo string) string {
	return "https://example.invalid/" + repo + ".git"
}
