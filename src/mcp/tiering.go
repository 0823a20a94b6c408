package mcp

import (
	"decent-ci/src/archive"
	"decent-ci/src/diagnostic"
	"decent-ci/src/ranking"
)

// Default limits per tier. Errors are the likely root causes and get the
// most room.
const (
	DefaultErrorLimit   = 15
	DefaultWarningLimit = 5
	DefaultOtherLimit   = 3
)

// TestOutputLines is how many output lines a failed test keeps.
const TestOutputLines = 10

// summaryMessageLength caps messages of summarized findings.
const summaryMessageLength = 100

// tierLimits scales the warning and other limits with the error limit.
func tierLimits(limit int) (errs, warns, other int) {
	if limit <= 0 || limit == DefaultErrorLimit {
		return DefaultErrorLimit, DefaultWarningLimit, DefaultOtherLimit
	}
	return limit, max(1, limit/3), max(1, limit/5)
}

// Summarize converts an archive entry to a list entry.
func Summarize(e archive.Entry) ResultSummary {
	fm := e.Document.FrontMatter
	ref := fm.Tag
	if ref == "" {
		ref = fm.Branch
	}
	return ResultSummary{
		ID:            e.ID,
		Path:          e.Path,
		Repository:    fm.Repository,
		Ref:           ref,
		CommitSHA:     fm.CommitSHA,
		PullRequestID: fm.PullRequestID,
		DeviceID:      fm.DeviceID,
		Status:        string(fm.Summary.Status),
		Description:   fm.Summary.Description(fm.Pending),
		Pending:       fm.Pending,
		UpdatedAt:     e.UpdatedAt,
	}
}

// Detail ranks the diagnostics of e. limit bounds the error tier; the
// lower tiers are scaled down from it.
func Detail(e archive.Entry, limit int) ResultDetail {
	doc := e.Document
	fm := doc.FrontMatter
	errLimit, warnLimit, otherLimit := tierLimits(limit)

	diags := make([]diagnostic.Diagnostic, 0, len(doc.Body.BuildResults)+len(doc.Body.PackageResults))
	diags = append(diags, doc.Body.BuildResults...)
	diags = append(diags, doc.Body.PackageResults...)
	tiered := ranking.Rank(diags)

	detail := ResultDetail{
		ResultSummary: Summarize(e),
		BuildErrors:   fm.Summary.BuildErrors + fm.Summary.PackageErrors,
		BuildWarnings: fm.Summary.BuildWarnings + fm.Summary.PackageWarnings,
		TestPassed:    fm.Summary.TestPassed,
		TestCount:     fm.Summary.TestCount,
		CoverageLines: fm.Summary.CoverageLines,
		Unhandled:     fm.Unhandled,
		Errors:        []Finding{},
		OtherFindings: []FindingSummary{},
		FailedTests:   []FailedTest{},
	}

	errs, dropped := ranking.Limit(tiered.Errors, errLimit)
	detail.Omitted += dropped
	for _, r := range errs {
		detail.Errors = append(detail.Errors, toFinding(r))
	}

	warns, dropped := ranking.Limit(tiered.Warnings, warnLimit)
	detail.Omitted += dropped
	other, dropped := ranking.Limit(tiered.Other, otherLimit)
	detail.Omitted += dropped
	for _, tier := range [][]ranking.Ranked{warns, other} {
		for _, r := range tier {
			detail.OtherFindings = append(detail.OtherFindings, toSummary(r))
		}
	}

	for _, t := range doc.Body.TestResults {
		if t.Passed() || t.Status == diagnostic.TestNotRun {
			continue
		}
		if len(detail.FailedTests) == errLimit {
			detail.Omitted++
			continue
		}
		detail.FailedTests = append(detail.FailedTests, FailedTest{
			Name:        t.Name,
			Status:      string(t.Status),
			FailureType: t.FailureType,
			Output:      CompressOutput(t.Output, TestOutputLines),
		})
	}
	return detail
}

func toFinding(r ranking.Ranked) Finding {
	d := r.Diagnostic
	return Finding{
		Tier:     r.Tier,
		File:     d.File,
		Line:     d.Line,
		Column:   d.Column,
		Severity: string(d.Severity),
		Message:  CompressLine(d.Text),
		Count:    r.Count,
	}
}

func toSummary(r ranking.Ranked) FindingSummary {
	msg := CompressLine(r.Diagnostic.Text)
	if runes := []rune(msg); len(runes) > summaryMessageLength {
		msg = string(runes[:summaryMessageLength-3]) + "..."
	}
	return FindingSummary{
		Tier:     r.Tier,
		File:     r.Diagnostic.File,
		Line:     r.Diagnostic.Line,
		Severity: string(r.Diagnostic.Severity),
		Message:  msg,
	}
}
