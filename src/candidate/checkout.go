package candidate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"decent-ci/src/diagnostic"
	"decent-ci/src/runner"
)

// checkoutFile is the pseudo file checkout failures are reported against.
const checkoutFile = "git"

func checkoutDiagnostic(err error) diagnostic.Diagnostic {
	return diagnostic.New(checkoutFile, 0, 0, diagnostic.SeverityError, "Checkout failed: "+err.Error())
}

// checkoutCommands fetches the candidate into the current directory. Pull
// requests are fetched from the base repository; other refs are fetched by
// name and then pinned to CommitSHA when one is known.
func (c *Candidate) checkoutCommands() []string {
	cmds := []string{"git init --quiet"}

	switch {
	case c.IsPullRequest():
		url := c.deps.Platform.CloneURL(c.BaseRepository)
		cmds = append(cmds,
			fmt.Sprintf("git fetch --quiet %q pull/%d/head", url, c.PullRequestID),
			"git checkout --quiet --force FETCH_HEAD",
		)
	default:
		url := c.deps.Platform.CloneURL(c.Repository)
		ref := "refs/heads/" + c.BranchName
		if c.IsRelease() {
			ref = "refs/tags/" + c.TagName
		}
		cmds = append(cmds, fmt.Sprintf("git fetch --quiet %q %q", url, ref))
		if c.CommitSHA != "" {
			cmds = append(cmds, fmt.Sprintf("git checkout --quiet --force %s", c.CommitSHA))
		} else {
			cmds = append(cmds, "git checkout --quiet --force FETCH_HEAD")
		}
	}

	return append(cmds, "git submodule update --quiet --init --recursive")
}

// Checkout prepares the working tree. A failure is recorded as a build
// diagnostic and prevents the build phases of every variant; it is only
// returned for logging.
func (c *Candidate) Checkout(ctx context.Context) error {
	c.checkedOut = false
	c.checkoutErr = nil

	err := c.checkout(ctx)
	if err != nil {
		c.log.Error("[Checkout] %s: %v", c.Identity, err)
		c.checkoutErr = err
		c.buildDiags.Add(checkoutDiagnostic(err))
		return err
	}

	c.log.Info("[Checkout] %s checked out in %s", c.Identity, c.SourceDir)
	c.checkedOut = true
	c.advance(CheckedOut)
	return nil
}

func (c *Candidate) checkout(ctx context.Context) error {
	if err := os.MkdirAll(c.SourceDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", c.SourceDir, err)
	}

	res, err := c.deps.Runner.Run(ctx, c.checkoutCommands(), runner.Options{Dir: c.SourceDir})
	if err != nil {
		return fmt.Errorf("failed to run git: %w", err)
	}
	if !res.Success() {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("git exited with %d", res.ExitCode)
		}
		return errors.New(msg)
	}
	return nil
}
