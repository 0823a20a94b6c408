// Package ranking orders diagnostics for human-facing output. Both the
// results comment and the TUI consume this package so that the most
// important messages appear first in either place.
package ranking

import (
	"sort"

	"decent-ci/src/diagnostic"
	"decent-ci/src/patterns"
)

// Tier constants for diagnostic classification.
const (
	TierError   = 1 // errors, always shown first
	TierWarning = 2
	TierOther   = 3 // info and unknown severities
)

// DefaultLimit is how many diagnostics a comment shows.
const DefaultLimit = 50

// Ranked wraps a Diagnostic with tier, rank and recurrence information.
type Ranked struct {
	Diagnostic diagnostic.Diagnostic
	Tier       int
	Rank       int // Position within the flattened list (1-indexed)
	Count      int // Occurrences of this message in the same file
}

// Tiered groups ranked diagnostics by tier, each tier sorted by file then
// position.
type Tiered struct {
	Errors   []Ranked
	Warnings []Ranked
	Other    []Ranked
}

// Rank classifies diagnostics into tiers. Messages that normalize to the
// same key within one file are collapsed into the first occurrence.
func Rank(diags []diagnostic.Diagnostic) Tiered {
	if len(diags) == 0 {
		return Tiered{}
	}

	sorted := make([]diagnostic.Diagnostic, len(diags))
	copy(sorted, diags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return diagnostic.Compare(sorted[i], sorted[j]) < 0
	})

	type key struct {
		file, severity, msg string
	}
	index := map[key]*Ranked{}
	var order []*Ranked

	for _, d := range sorted {
		k := key{d.File, string(d.Severity), patterns.Key(d.Text)}
		if r, ok := index[k]; ok {
			r.Count++
			continue
		}
		r := &Ranked{Diagnostic: d, Tier: ClassifyTier(d), Count: 1}
		index[k] = r
		order = append(order, r)
	}

	var out Tiered
	for _, r := range order {
		switch r.Tier {
		case TierError:
			out.Errors = append(out.Errors, *r)
		case TierWarning:
			out.Warnings = append(out.Warnings, *r)
		default:
			out.Other = append(out.Other, *r)
		}
	}
	return out
}

// ClassifyTier determines which tier a diagnostic belongs to.
func ClassifyTier(d diagnostic.Diagnostic) int {
	switch d.Severity {
	case diagnostic.SeverityError:
		return TierError
	case diagnostic.SeverityWarning:
		return TierWarning
	default:
		return TierOther
	}
}

// FlattenByTier returns all diagnostics ordered errors, warnings, other,
// and assigns the global rank.
func (t Tiered) FlattenByTier() []Ranked {
	total := len(t.Errors) + len(t.Warnings) + len(t.Other)
	if total == 0 {
		return nil
	}

	result := make([]Ranked, 0, total)
	result = append(result, t.Errors...)
	result = append(result, t.Warnings...)
	result = append(result, t.Other...)

	for i := range result {
		result[i].Rank = i + 1
	}
	return result
}

// Counts returns the number of distinct entries per tier.
func (t Tiered) Counts() (errors, warnings, other int) {
	return len(t.Errors), len(t.Warnings), len(t.Other)
}

// Limit keeps the first n entries and reports how many were dropped.
// n <= 0 keeps everything.
func Limit(ranked []Ranked, n int) ([]Ranked, int) {
	if n <= 0 || len(ranked) <= n {
		return ranked, 0
	}
	return ranked[:n], len(ranked) - n
}

// FileGroup is a run of ranked diagnostics from one file.
type FileGroup struct {
	File  string
	Items []Ranked
}

// GroupByFile splits a flattened list into consecutive per-file groups.
// Tier order is preserved, so a file may appear once per tier.
func GroupByFile(ranked []Ranked) []FileGroup {
	var groups []FileGroup
	for _, r := range ranked {
		n := len(groups)
		if n > 0 && groups[n-1].File == r.Diagnostic.File && groups[n-1].Items[0].Tier == r.Tier {
			groups[n-1].Items = append(groups[n-1].Items, r)
			continue
		}
		groups = append(groups, FileGroup{File: r.Diagnostic.File, Items: []Ranked{r}})
	}
	return groups
}
