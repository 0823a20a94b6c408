// Package config provides configuration management for decent-ci.
//
// Process-level settings come from the environment (LoadFromEnv). The build
// matrix and project settings come from a configuration file (LoadFile) which
// Resolve turns into an immutable Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrNoConfig is returned when no configuration file could be found.
	ErrNoConfig = errors.New("no configuration file found")

	// ErrNoVariants is returned when a configuration defines no compilers.
	ErrNoVariants = errors.New("no toolchain variants defined")

	// ErrUnknownCompiler is returned when a variant's compiler binaries
	// cannot be determined.
	ErrUnknownCompiler = errors.New("unable to resolve compiler")
)

// Settings holds the process-level configuration.
type Settings struct {
	// GitHubToken authenticates every hosting platform call.
	GitHubToken string

	// ConfigPath is an explicit configuration file; empty means search the
	// checkout for one of DefaultFileNames.
	ConfigPath string

	// WorkDir is where candidates are checked out and built.
	WorkDir string

	// RedpandaBrokers enables distributed mode when non-empty.
	RedpandaBrokers []string

	// PostgresDSN mirrors archived results into Postgres when set.
	PostgresDSN string

	// UploadScript is the object-store helper invoked for artifacts and
	// coverage reports.
	UploadScript string

	Verbose bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Settings, error) {
	s, err := LoadViewerFromEnv()
	if err != nil {
		return nil, err
	}
	if s.GitHubToken == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is required")
	}
	return s, nil
}

// LoadViewerFromEnv loads the settings needed to read archived results.
// Unlike LoadFromEnv it does not require a GitHub token.
func LoadViewerFromEnv() (*Settings, error) {
	workDir := os.Getenv("DECENT_CI_WORKDIR")
	if workDir == "" {
		workDir = os.TempDir()
	}

	verbose := false
	if v := os.Getenv("DECENT_CI_VERBOSE"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DECENT_CI_VERBOSE %q: %w", v, err)
		}
		verbose = parsed
	}

	return &Settings{
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		ConfigPath:      os.Getenv("DECENT_CI_CONFIG"),
		WorkDir:         workDir,
		RedpandaBrokers: splitList(os.Getenv("REDPANDA_BROKERS")),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		UploadScript:    os.Getenv("DECENT_CI_UPLOAD_SCRIPT"),
		Verbose:         verbose,
	}, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Settings {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
