// Package objectstore publishes files through an external upload script.
//
// The script is invoked as
//
//	<script> <bucket> <build name> <local path> <category>
//
// and prints the public URL of the uploaded object as its last line.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"decent-ci/src/logger"
	"decent-ci/src/runner"
)

// Categories used by the build pipeline.
const (
	CategoryCoverage = "coverage"
	CategoryBuild    = "build"
)

// ErrNoScript is returned when no upload script is configured.
var ErrNoScript = errors.New("no upload script configured")

// Uploader stores a local file or directory and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, bucket, buildName, localPath, category string) (string, error)
}

// ScriptUploader runs the upload script through a Runner.
type ScriptUploader struct {
	script string
	run    runner.Runner
	log    logger.Logger
}

// NewScriptUploader creates an uploader for script. An empty script makes
// every upload fail with ErrNoScript.
func NewScriptUploader(script string, run runner.Runner, log logger.Logger) *ScriptUploader {
	return &ScriptUploader{script: script, run: run, log: logger.OrDefault(log)}
}

// Upload runs the script and returns the URL it printed.
func (u *ScriptUploader) Upload(ctx context.Context, bucket, buildName, localPath, category string) (string, error) {
	if u.script == "" {
		return "", ErrNoScript
	}

	cmd := strings.Join([]string{quote(u.script), quote(bucket), quote(buildName), quote(localPath), quote(category)}, " ")
	u.log.Info("[Upload] %s %s to %s", category, localPath, bucket)

	res, err := u.run.Run(ctx, []string{cmd}, runner.Options{})
	if err != nil {
		return "", fmt.Errorf("failed to run upload script: %w", err)
	}
	if !res.Success() {
		return "", fmt.Errorf("upload script exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	url := lastLine(res.Stdout)
	if url == "" {
		return "", fmt.Errorf("upload script printed no URL")
	}
	u.log.Debug("[Upload] %s available at %s", localPath, url)
	return url, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func quote(s string) string {
	return `"` + s + `"`
}
