package provider

import "time"

// Release is a published (or draft) release of a repository.
type Release struct {
	ID          int64
	TagName     string
	Name        string
	Draft       bool
	Prerelease  bool
	CreatedAt   time.Time
	PublishedAt time.Time
	HTMLURL     string
}

// Branch is a branch head.
type Branch struct {
	Name        string
	SHA         string
	CommittedAt time.Time
}

// PullRequest is an open pull request. Head and base repositories are
// "owner/name" strings; they differ for pull requests from forks.
type PullRequest struct {
	Number    int
	Title     string
	HeadSHA   string
	HeadRef   string
	HeadRepo  string
	BaseRef   string
	BaseRepo  string
	UpdatedAt time.Time
}

// External reports whether the pull request comes from another repository.
func (p PullRequest) External() bool {
	return p.HeadRepo != "" && p.HeadRepo != p.BaseRepo
}

// FileContent is a file stored in a repository.
type FileContent struct {
	Path    string
	SHA     string
	Content []byte
}

// PutContent describes a create-or-update of a repository file. An empty
// SHA creates the file; otherwise SHA must match the current blob.
type PutContent struct {
	Path    string
	Message string
	Content []byte
	SHA     string
	Branch  string
}

// StatusState is a commit status state.
type StatusState string

const (
	StatusPending StatusState = "pending"
	StatusSuccess StatusState = "success"
	StatusFailure StatusState = "failure"
	StatusErrored StatusState = "error"
)

// Status is one commit status.
type Status struct {
	Context     string
	State       StatusState
	Description string
	TargetURL   string
}

// CombinedStatus is the aggregate of every status on a ref.
type CombinedStatus struct {
	SHA      string
	State    StatusState
	Statuses []Status
}

// Reported reports whether context already has a non-pending status.
func (c *CombinedStatus) Reported(context string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Statuses {
		if s.Context == context && s.State != StatusPending {
			return true
		}
	}
	return false
}

// Asset is a file attached to a release. State is "uploaded" once the
// upload completed; anything else is a partial upload.
type Asset struct {
	ID          int64
	Name        string
	State       string
	Size        int64
	DownloadURL string
}

// AssetUploaded is the terminal asset state.
const AssetUploaded = "uploaded"

// RateLimit is the quota reported with the last response.
type RateLimit struct {
	Limit     int
	Remaining int
	Used      int
	Reset     time.Time
}
