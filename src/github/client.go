// Package github implements provider.Platform on the GitHub REST API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"decent-ci/src/logger"
	"decent-ci/src/provider"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUploadURL = "https://uploads.github.com"
	defaultCloneHost = "github.com"

	perPage = 100 // GitHub's max per page
)

// Client is a GitHub REST API client
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	uploadURL  string
	cloneHost  string
	log        logger.Logger

	mu   sync.Mutex
	rate provider.RateLimit
}

// NewClient creates a new GitHub client
func NewClient(token string, log logger.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		baseURL:   defaultBaseURL,
		uploadURL: defaultUploadURL,
		cloneHost: defaultCloneHost,
		log:       logger.OrDefault(log),
	}
}

// RateLimit returns the quota reported by the most recent response.
func (c *Client) RateLimit() provider.RateLimit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// CloneURL returns an authenticated https clone URL.
func (c *Client) CloneURL(repo string) string {
	if c.token == "" {
		return fmt.Sprintf("https://%s/%s.git", c.cloneHost, repo)
	}
	return fmt.Sprintf("https://x-access-token:%s@%s/%s.git", c.token, c.cloneHost, repo)
}

// do sends a request and returns the response when its status is one of
// want. Other statuses are turned into *provider.StatusError or
// *provider.RateLimitError and the body is closed.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string, want ...int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	rate := c.recordRateLimit(resp.Header)
	c.log.Debug("%s %s -> %d", method, rawURL, resp.StatusCode)

	for _, code := range want {
		if resp.StatusCode == code {
			return resp, nil
		}
	}

	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if isRateLimited(resp, rate) {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		return nil, &provider.RateLimitError{RateLimit: rate, Message: apiErr.Message}
	}

	return nil, &provider.StatusError{Code: resp.StatusCode, Body: string(data)}
}

func (c *Client) recordRateLimit(h http.Header) provider.RateLimit {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := h.Get("X-RateLimit-Limit"); v != "" {
		c.rate.Limit, _ = strconv.Atoi(v)
	}
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		c.rate.Remaining, _ = strconv.Atoi(v)
	}
	if v := h.Get("X-RateLimit-Used"); v != "" {
		c.rate.Used, _ = strconv.Atoi(v)
	} else if c.rate.Limit > 0 {
		c.rate.Used = c.rate.Limit - c.rate.Remaining
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.rate.Reset = time.Unix(secs, 0)
		}
	}
	return c.rate
}

func isRateLimited(resp *http.Response, rate provider.RateLimit) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" && rate.Limit > 0
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil, "", http.StatusOK)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return jsonDecode(resp, v)
}

func jsonDecode(resp *http.Response, v interface{}) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) sendJSON(ctx context.Context, method, rawURL string, in, out interface{}, want ...int) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, method, rawURL, bytes.NewReader(payload), "application/json", want...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getAll fetches every page of a list endpoint.
func getAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	var all []T
	for page := 1; ; page++ {
		query.Set("per_page", strconv.Itoa(perPage))
		query.Set("page", strconv.Itoa(page))

		var items []T
		if err := c.getJSON(ctx, c.baseURL+path+"?"+query.Encode(), &items); err != nil {
			return nil, err
		}
		all = append(all, items...)

		if len(items) < perPage {
			return all, nil
		}
	}
}

// repoPath builds /repos/<owner>/<name><suffix>.
func repoPath(repo string, suffix ...string) string {
	return "/repos/" + repo + strings.Join(suffix, "")
}

// escapePath escapes each segment of a repository file path.
func escapePath(p string) string {
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
