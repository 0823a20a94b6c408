package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"decent-ci/src/archive"
	"decent-ci/src/candidate"
	"decent-ci/src/config"
	"decent-ci/src/discovery"
	"decent-ci/src/pipeline"
	"decent-ci/src/results"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		id   candidate.Identity
		want string
	}{
		{name: "release", id: candidate.Identity{TagName: "v1.0"}, want: "release"},
		{name: "pull request", id: candidate.Identity{BranchName: "fix", PullRequestID: 7}, want: "pull"},
		{name: "branch", id: candidate.Identity{BranchName: "develop"}, want: "branch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kind(tt.id); got != tt.want {
				t.Errorf("kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintWork(t *testing.T) {
	v := config.ToolchainVariant{
		Name: "gcc", Version: "11", Description: "gcc-11", ArchitectureDescription: "x86_64",
		OS: "Linux", OSRelease: "Ubuntu-22.04", BuildType: "Release",
	}
	work := []discovery.Work{{
		Identity: candidate.Identity{Repository: "octo/app", BranchName: "develop", CommitSHA: "0123456789abcdef"},
		Variants: []config.ToolchainVariant{v},
	}}

	var buf bytes.Buffer
	printWork(&buf, work)
	out := buf.String()

	for _, want := range []string{"branch", "octo/app@develop", "0123456789 ", v.DeviceID()} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "abcdef") {
		t.Errorf("commit sha should be shortened:\n%s", out)
	}

	buf.Reset()
	printWork(&buf, nil)
	if !strings.Contains(buf.String(), "Every candidate has results") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestPrintEntries(t *testing.T) {
	entries := []archive.Entry{
		{
			ID:        "1",
			UpdatedAt: time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC),
			Document: results.Document{FrontMatter: results.FrontMatter{
				Repository: "octo/app",
				Tag:        "v2.0",
				DeviceID:   "x86_64-Linux-gcc",
				Summary:    results.Summary{Status: results.StatusFailed},
			}},
		},
		{
			ID: "2",
			Document: results.Document{FrontMatter: results.FrontMatter{
				Repository: "octo/app",
				Branch:     "develop",
				DeviceID:   "x86_64-Linux-clang",
				Pending:    true,
			}},
		},
	}

	var buf bytes.Buffer
	printEntries(&buf, entries)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "failed") || !strings.Contains(lines[0], "v2.0") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "pending") || !strings.Contains(lines[1], "develop") {
		t.Errorf("second line = %q", lines[1])
	}

	buf.Reset()
	printEntries(&buf, nil)
	if !strings.Contains(buf.String(), "No results found") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestReport(t *testing.T) {
	if err := report(pipeline.Stats{Candidates: 2, Variants: 3}); err != nil {
		t.Errorf("report() error = %v", err)
	}
	if err := report(pipeline.Stats{Candidates: 2, Variants: 3, Failed: 1}); err == nil {
		t.Error("report() should fail when a build could not be reported")
	}
}

func TestFilterFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("repo", "", "")
	cmd.Flags().String("ref", "", "")
	cmd.Flags().String("device", "", "")
	cmd.Flags().Int("limit", 0, "")
	if err := cmd.ParseFlags([]string{"--repo", "octo/app", "--ref", "main", "--limit", "3"}); err != nil {
		t.Fatal(err)
	}

	want := archive.Filter{Repository: "octo/app", Ref: "main", Limit: 3}
	if got := filterFlags(cmd); got != want {
		t.Errorf("filterFlags() = %+v, want %+v", got, want)
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "discover", "results", "view"} {
		if !names[want] {
			t.Errorf("rootCmd is missing %q", want)
		}
	}
	if resultsCmd.Annotations["token"] != "optional" || runCmd.Annotations["token"] == "optional" {
		t.Error("only viewers may run without a GitHub token")
	}
}
