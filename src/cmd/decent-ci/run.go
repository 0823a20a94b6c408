package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"decent-ci/src/archive"
	"decent-ci/src/candidate"
	"decent-ci/src/config"
	"decent-ci/src/discovery"
	"decent-ci/src/gate"
	"decent-ci/src/github"
	"decent-ci/src/logger"
	"decent-ci/src/objectstore"
	"decent-ci/src/pipeline"
	"decent-ci/src/runner"
	"decent-ci/src/tui"
)

// viewRefresh is how often the live viewer re-reads the archive.
const viewRefresh = 2 * time.Second

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <owner/repo>",
	Short: "Builds every candidate of a repository that still needs results.",
	Long: `Discovers the releases, branches and pull requests of a repository
that have no final status for one or more toolchain variants, then checks
out, builds, tests and packages each one, posting a pending report before
and a final report after every variant.

The configuration is read from DECENT_CI_CONFIG when set, otherwise from
.decent_ci.yaml, .decent_ci.yml or .decent_ci.toml on the default branch.

With --view: Builds in the background and shows the results as they are
reported in the interactive viewer. Logging is silenced while it is open.

Example:
  decent-ci run octo/app
  decent-ci run octo/app --view`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		withView, _ := cmd.Flags().GetBool("view")
		log := logger.Default()
		if withView {
			log = logger.NewSilentLogger()
		}

		p, err := prepare(ctx, args[0], log)
		if err != nil {
			return err
		}

		infra, err := pipeline.Open(ctx, settings, p.cfg, p.platform, p.gate, log)
		if err != nil {
			return err
		}
		defer infra.Close()

		work, err := discovery.New(p.platform, p.gate, p.cfg, log).Discover(ctx)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		if len(work) == 0 {
			fmt.Printf("✓ Nothing to build for %s\n", p.cfg.Repository)
			return nil
		}

		shell := runner.NewShellRunner(log)
		driver := pipeline.NewDriver(p.cfg, settings.WorkDir, candidate.Deps{
			Runner:    shell,
			Platform:  p.platform,
			Gate:      p.gate,
			Archive:   infra.Archive,
			Publisher: infra.Broker,
			Uploader:  objectstore.NewScriptUploader(settings.UploadScript, shell, log),
			Log:       log,
		})

		if !withView {
			return report(driver.Run(ctx, work))
		}
		return runWithView(ctx, driver, work, infra.Lister, p.cfg.Repository)
	},
}

// runWithView builds in the background while the viewer is open. Closing
// the viewer cancels the build.
func runWithView(ctx context.Context, driver *pipeline.Driver, work []discovery.Work, lister archive.Lister, repo string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan pipeline.Stats, 1)
	go func() {
		done <- driver.Run(ctx, work)
	}()

	if err := tui.Run(ctx, lister, archive.Filter{Repository: repo}, viewRefresh); err != nil {
		return fmt.Errorf("viewer error: %w", err)
	}
	cancel()
	return report(<-done)
}

func report(stats pipeline.Stats) error {
	fmt.Printf("Built %d variants of %d candidates\n", stats.Variants, stats.Candidates)
	if stats.Failed > 0 {
		return fmt.Errorf("%d builds could not be reported", stats.Failed)
	}
	return nil
}

// prepared holds the collaborators shared by run and discover.
type prepared struct {
	cfg      *config.Config
	platform *github.Client
	gate     *gate.Gate
}

func prepare(ctx context.Context, repo string, log logger.Logger) (*prepared, error) {
	platform := github.NewClient(settings.GitHubToken, log)
	g := gate.New(platform, log)

	cfg, err := pipeline.LoadConfig(ctx, settings, platform, g, repo, log)
	if err != nil {
		return nil, err
	}
	return &prepared{cfg: cfg, platform: platform, gate: g}, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("view", false, "Show results in the interactive viewer while building")
}
