package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"decent-ci/src/config"
	"decent-ci/src/diagnostic"
	"decent-ci/src/patterns"
)

// Layout is the page layout named in every front matter block.
const Layout = "ci_results"

const frontMatterDelimiter = "---\n"

// ErrNoFrontMatter is returned by Parse for documents that do not start
// with a front matter block.
var ErrNoFrontMatter = errors.New("document has no front matter")

// FrontMatter is the metadata block of an archived document. The metrics
// are flat so that static site templates can read them directly.
type FrontMatter struct {
	Title     string    `yaml:"title" json:"title"`
	Permalink string    `yaml:"permalink" json:"permalink"`
	Tags      []string  `yaml:"tags" json:"tags"`
	Layout    string    `yaml:"layout" json:"layout"`
	Date      time.Time `yaml:"date" json:"date"`

	Repository    string `yaml:"repository" json:"repository"`
	Branch        string `yaml:"branch,omitempty" json:"branch,omitempty"`
	Tag           string `yaml:"tag_name,omitempty" json:"tag_name,omitempty"`
	CommitSHA     string `yaml:"commit_sha" json:"commit_sha"`
	PullRequestID int    `yaml:"pull_request_id,omitempty" json:"pull_request_id,omitempty"`
	DeviceID      string `yaml:"device_id" json:"device_id"`
	Compiler      string `yaml:"compiler" json:"compiler"`
	Version       string `yaml:"compiler_version" json:"compiler_version"`
	Architecture  string `yaml:"architecture" json:"architecture"`
	OS            string `yaml:"os" json:"os"`
	OSRelease     string `yaml:"os_release" json:"os_release"`
	BuildType     string `yaml:"build_type" json:"build_type"`
	Pending       bool   `yaml:"pending" json:"pending"`

	Summary `yaml:",inline" json:"summary"`
	Timings `yaml:",inline" json:"timings"`

	CoverageURL     string   `yaml:"coverage_url,omitempty" json:"coverage_url,omitempty"`
	Packages        []string `yaml:"packages,omitempty" json:"packages,omitempty"`
	PackageURLs     []string `yaml:"package_urls,omitempty" json:"package_urls,omitempty"`
	Unhandled       string   `yaml:"unhandled_failure_message,omitempty" json:"unhandled_failure_message,omitempty"`
	AnnotationCount int      `yaml:"annotation_count" json:"annotation_count"`
}

// Body is the JSON part of an archived document.
type Body struct {
	BuildResults       []diagnostic.Diagnostic     `json:"build_results"`
	TestResults        []diagnostic.TestOutcome    `json:"test_results"`
	PackageResults     []diagnostic.Diagnostic     `json:"package_results"`
	Annotations        []diagnostic.TestAnnotation `json:"test_annotations"`
	AnnotationGroups   []patterns.AnnotationGroup  `json:"annotation_groups"`
	Configuration      config.ToolchainVariant     `json:"configuration"`
	PerformanceResults Timings                     `json:"performance_results"`
}

// Document is one archived report.
type Document struct {
	FrontMatter FrontMatter
	Body        Body
}

// Folder is the archive folder of a report: the ref, or PullRequest<N> for
// pull requests.
func Folder(r Report) string {
	if r.PullRequestID != 0 {
		return "PullRequest" + strconv.Itoa(r.PullRequestID)
	}
	return sanitizeSegment(r.Ref())
}

// FileName is <YYYY-MM-DD>-<device id>.html.
func FileName(date time.Time, deviceID string) string {
	return date.UTC().Format("2006-01-02") + "-" + deviceID + ".html"
}

// Path is the archive path of a report below resultsPath.
func Path(resultsPath string, r Report) string {
	return path.Join(resultsPath, Folder(r), FileName(r.Date, r.Variant.DeviceID()))
}

func sanitizeSegment(s string) string {
	return strings.NewReplacer("/", "-", "\\", "-", " ", "-").Replace(s)
}

// NewDocument assembles the archived document of r.
func NewDocument(r Report, th config.Thresholds) Document {
	s := Summarize(r, th)
	v := r.Variant
	deviceID := v.DeviceID()

	sha := r.CommitSHA
	if len(sha) > 10 {
		sha = sha[:10]
	}

	tags := []string{deviceID, r.Ref(), string(s.Status)}
	if r.Pending {
		tags = append(tags, "pending")
	}

	fm := FrontMatter{
		Title:           fmt.Sprintf("%s %s (%s) %s", r.Repository, displayRef(r), sha, deviceID),
		Permalink:       "/" + path.Join(Folder(r), FileName(r.Date, deviceID)),
		Tags:            tags,
		Layout:          Layout,
		Date:            r.Date.UTC(),
		Repository:      r.Repository,
		Branch:          r.Branch,
		Tag:             r.Tag,
		CommitSHA:       r.CommitSHA,
		PullRequestID:   r.PullRequestID,
		DeviceID:        deviceID,
		Compiler:        v.Name,
		Version:         v.Version,
		Architecture:    v.Architecture,
		OS:              v.OS,
		OSRelease:       v.OSRelease,
		BuildType:       v.BuildType,
		Pending:         r.Pending,
		Summary:         s,
		Timings:         r.Timings,
		CoverageURL:     r.CoverageURL,
		Packages:        r.Artifacts,
		PackageURLs:     r.ArtifactURLs,
		Unhandled:       r.Unhandled,
		AnnotationCount: len(r.Annotations),
	}

	return Document{
		FrontMatter: fm,
		Body: Body{
			BuildResults:       orEmpty(r.Build),
			TestResults:        orEmpty(r.Tests),
			PackageResults:     orEmpty(r.Package),
			Annotations:        orEmpty(r.Annotations),
			AnnotationGroups:   orEmpty(patterns.GroupAnnotations(r.Annotations)),
			Configuration:      v,
			PerformanceResults: r.Timings,
		},
	}
}

func displayRef(r Report) string {
	if r.PullRequestID != 0 {
		return fmt.Sprintf("PR #%d", r.PullRequestID)
	}
	return r.Ref()
}

// orEmpty keeps JSON arrays non-null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Marshal renders the front matter block followed by the JSON body.
func (d Document) Marshal() ([]byte, error) {
	fm, err := yaml.Marshal(d.FrontMatter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	body, err := json.MarshalIndent(d.Body, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelimiter)
	buf.Write(fm)
	buf.WriteString(frontMatterDelimiter)
	buf.WriteByte('\n')
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Parse reads a document produced by Marshal.
func Parse(data []byte) (Document, error) {
	var doc Document

	rest, ok := bytes.CutPrefix(data, []byte(frontMatterDelimiter))
	if !ok {
		return doc, ErrNoFrontMatter
	}
	fm, body, ok := bytes.Cut(rest, []byte("\n"+frontMatterDelimiter))
	if !ok {
		return doc, ErrNoFrontMatter
	}

	if err := yaml.Unmarshal(fm, &doc.FrontMatter); err != nil {
		return doc, fmt.Errorf("failed to decode front matter: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(body, &doc.Body); err != nil {
		return doc, fmt.Errorf("failed to decode results: %w", err)
	}
	return doc, nil
}
