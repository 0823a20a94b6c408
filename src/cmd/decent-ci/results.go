package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"decent-ci/src/archive"
	"decent-ci/src/logger"
	"decent-ci/src/pipeline"
	"decent-ci/src/tui"
)

// viewerGroup is the Redpanda consumer group of interactive viewers.
const viewerGroup = "decent-ci-viewer"

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Lists archived results, newest first.",
	Long: `Lists results documents from Postgres when POSTGRES_DSN is set, or
collects report events from Redpanda for --wait when only REDPANDA_BROKERS
is set.

Example:
  decent-ci results --repo octo/app --ref develop
  decent-ci results --device x86_64-Linux-Ubuntu-22.04-gcc-11 --limit 5`,
	Annotations: map[string]string{"token": "optional"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filter := filterFlags(cmd)
		wait, _ := cmd.Flags().GetDuration("wait")

		viewer, err := pipeline.OpenLister(ctx, settings, viewerGroup, logger.Default())
		if err != nil {
			return err
		}
		defer viewer.Close()

		if viewer.Following {
			fmt.Printf("Collecting report events (%s)...\n", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		entries, err := viewer.Lister.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list results: %w", err)
		}
		printEntries(os.Stdout, entries)
		return nil
	},
}

// viewCmd represents the view command
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browses archived results in an interactive viewer.",
	Long: `Opens the results viewer over the same archive as 'decent-ci results'.
The list refreshes every --refresh; press (r) to refresh immediately.

Example:
  decent-ci view --repo octo/app`,
	Annotations: map[string]string{"token": "optional"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		refresh, _ := cmd.Flags().GetDuration("refresh")

		// The viewer owns the terminal.
		viewer, err := pipeline.OpenLister(ctx, settings, viewerGroup, logger.NewSilentLogger())
		if err != nil {
			return err
		}
		defer viewer.Close()

		if err := tui.Run(ctx, viewer.Lister, filterFlags(cmd), refresh); err != nil {
			return fmt.Errorf("viewer error: %w", err)
		}
		return nil
	},
}

func filterFlags(cmd *cobra.Command) archive.Filter {
	var f archive.Filter
	f.Repository, _ = cmd.Flags().GetString("repo")
	f.Ref, _ = cmd.Flags().GetString("ref")
	f.DeviceID, _ = cmd.Flags().GetString("device")
	f.Limit, _ = cmd.Flags().GetInt("limit")
	return f
}

func printEntries(w io.Writer, entries []archive.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "⚠️  No results found.")
		return
	}

	styles := tui.DefaultStyles()
	for _, e := range entries {
		item := tui.Item{Entry: e}
		fm := e.Document.FrontMatter
		status := string(fm.Status)
		if fm.Pending {
			status = "pending"
		}
		fmt.Fprintf(w, "%s %-20s %-24s %-40s %s\n",
			styles.StatusStyle(fm.Status, fm.Pending).Render(fmt.Sprintf("%-7s", status)),
			fm.Repository,
			item.Ref(),
			fm.DeviceID,
			e.UpdatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(viewCmd)

	for _, cmd := range []*cobra.Command{resultsCmd, viewCmd} {
		cmd.Flags().String("repo", "", "Only show results of this repository")
		cmd.Flags().String("ref", "", "Only show results of this branch or tag")
		cmd.Flags().String("device", "", "Only show results of this device id")
	}
	resultsCmd.Flags().IntP("limit", "n", 20, "Maximum number of results")
	resultsCmd.Flags().Duration("wait", 5*time.Second, "How long to collect report events when following Redpanda")
	viewCmd.Flags().Int("limit", 0, "Maximum number of results (0 = all)")
	viewCmd.Flags().Duration("refresh", 5*time.Second, "Refresh interval")
}
