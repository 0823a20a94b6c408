package tui

import (
	"strings"

	"decent-ci/src/archive"
	"decent-ci/src/results"
)

// Item is one archived result in the list. It implements list.Item.
type Item struct {
	Entry archive.Entry
	Rank  int
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string {
	return i.Repository() + " " + i.Ref() + " " + i.DeviceID()
}

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return i.Ref() + " " + i.DeviceID() }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string {
	fm := i.Entry.Document.FrontMatter
	return fm.Summary.Description(fm.Pending)
}

func (i Item) Repository() string { return i.Entry.Document.FrontMatter.Repository }

func (i Item) DeviceID() string { return i.Entry.Document.FrontMatter.DeviceID }

// Ref is the tag, the pull request or the branch of the result.
func (i Item) Ref() string {
	fm := i.Entry.Document.FrontMatter
	switch {
	case fm.Tag != "":
		return fm.Tag
	case fm.PullRequestID != 0:
		return results.Folder(results.Report{PullRequestID: fm.PullRequestID})
	default:
		return fm.Branch
	}
}

func (i Item) Status() results.Status { return i.Entry.Document.FrontMatter.Summary.Status }

func (i Item) Pending() bool { return i.Entry.Document.FrontMatter.Pending }

// Failing reports whether the result is final and failed.
func (i Item) Failing() bool { return !i.Pending() && i.Status() == results.StatusFailed }

// matches reports whether query occurs in the identity or any message of
// the result. query must be lower case.
func (i Item) matches(query string) bool {
	doc := i.Entry.Document
	fields := []string{i.Repository(), i.Ref(), i.DeviceID(), doc.FrontMatter.CommitSHA, doc.FrontMatter.Unhandled}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	for _, d := range doc.Body.BuildResults {
		if strings.Contains(strings.ToLower(d.Text), query) || strings.Contains(strings.ToLower(d.File), query) {
			return true
		}
	}
	for _, tr := range doc.Body.TestResults {
		if !tr.Passed() && strings.Contains(strings.ToLower(tr.Name), query) {
			return true
		}
	}
	return false
}
