// Package mcp serves archived build results to LLM clients over the Model
// Context Protocol.
package mcp

import "time"

// ResultSummary is one line of a list_results response.
type ResultSummary struct {
	ID            string    `json:"id"`
	Path          string    `json:"path"`
	Repository    string    `json:"repository"`
	Ref           string    `json:"ref"`
	CommitSHA     string    `json:"commit_sha"`
	PullRequestID int       `json:"pull_request_id,omitempty"`
	DeviceID      string    `json:"device_id"`
	Status        string    `json:"status"`
	Description   string    `json:"description"`
	Pending       bool      `json:"pending"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResultDetail is the get_result response. Errors are expanded; warnings
// and other messages are summarized.
type ResultDetail struct {
	ResultSummary

	BuildErrors   int     `json:"build_errors"`
	BuildWarnings int     `json:"build_warnings"`
	TestPassed    int     `json:"test_passed"`
	TestCount     int     `json:"test_count"`
	CoverageLines float64 `json:"coverage_lines,omitempty"`
	Unhandled     string  `json:"unhandled_failure,omitempty"`

	Errors        []Finding        `json:"errors"`
	OtherFindings []FindingSummary `json:"other_findings"`
	FailedTests   []FailedTest     `json:"failed_tests"`
	Omitted       int              `json:"omitted,omitempty"`
}

// Finding is a ranked diagnostic.
type Finding struct {
	Tier     int    `json:"tier"`
	File     string `json:"file"`
	Line     uint   `json:"line,omitempty"`
	Column   uint   `json:"column,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Count    int    `json:"count"`
}

// FindingSummary is a shortened finding for the lower tiers.
type FindingSummary struct {
	Tier     int    `json:"tier"`
	File     string `json:"file"`
	Line     uint   `json:"line,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// FailedTest is a failing test with the tail of its output.
type FailedTest struct {
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	FailureType string   `json:"failure_type,omitempty"`
	Output      []string `json:"output"`
}
