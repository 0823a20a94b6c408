package github

import "time"

// API response shapes; only the fields decent-ci reads are declared.

type apiRelease struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

type apiBranch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

type apiRepo struct {
	FullName string `json:"full_name"`
}

type apiRef struct {
	Ref  string   `json:"ref"`
	SHA  string   `json:"sha"`
	Repo *apiRepo `json:"repo"`
}

type apiPull struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Head      apiRef    `json:"head"`
	Base      apiRef    `json:"base"`
}

type apiContent struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type apiPutContent struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type apiPutContentResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type apiStatus struct {
	Context     string `json:"context"`
	State       string `json:"state"`
	Description string `json:"description,omitempty"`
	TargetURL   string `json:"target_url,omitempty"`
}

type apiCombinedStatus struct {
	SHA      string      `json:"sha"`
	State    string      `json:"state"`
	Statuses []apiStatus `json:"statuses"`
}

type apiAsset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	State              string `json:"state"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type apiComment struct {
	Body string `json:"body"`
}

type apiError struct {
	Message string `json:"message"`
}
