package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"decent-ci/src/candidate"
	"decent-ci/src/discovery"
	"decent-ci/src/logger"
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover <owner/repo>",
	Short: "Lists the candidates of a repository that still need results.",
	Long: `Runs candidate discovery without building anything. Every line is one
release, branch or pull request followed by the device ids of the variants
it still needs.

Example:
  decent-ci discover octo/app`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.Default()

		p, err := prepare(ctx, args[0], log)
		if err != nil {
			return err
		}
		work, err := discovery.New(p.platform, p.gate, p.cfg, log).Discover(ctx)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		printWork(os.Stdout, work)
		return nil
	},
}

func kind(id candidate.Identity) string {
	switch {
	case id.IsRelease():
		return "release"
	case id.IsPullRequest():
		return "pull"
	default:
		return "branch"
	}
}

func printWork(w io.Writer, work []discovery.Work) {
	if len(work) == 0 {
		fmt.Fprintln(w, "✓ Every candidate has results")
		return
	}
	for _, item := range work {
		devices := make([]string, len(item.Variants))
		for i, v := range item.Variants {
			devices[i] = v.DeviceID()
		}
		sha := item.Identity.CommitSHA
		if len(sha) > 10 {
			sha = sha[:10]
		}
		fmt.Fprintf(w, "%-8s %-40s %-10s %s\n", kind(item.Identity), item.Identity, sha, strings.Join(devices, ", "))
	}
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
