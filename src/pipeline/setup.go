package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"decent-ci/src/archive"
	"decent-ci/src/broker"
	"decent-ci/src/config"
	"decent-ci/src/gate"
	"decent-ci/src/logger"
	"decent-ci/src/provider"
)

// ErrNoArchive is returned by OpenLister when neither Postgres nor
// Redpanda is configured.
var ErrNoArchive = errors.New("no results archive configured: set POSTGRES_DSN or REDPANDA_BROKERS")

// LoadConfig resolves the project configuration for repo. An explicit
// s.ConfigPath wins; otherwise the first of config.DefaultFileNames found on
// the default branch of repo is fetched into the work directory.
func LoadConfig(ctx context.Context, s *config.Settings, platform provider.Platform, g *gate.Gate, repo string, log logger.Logger) (*config.Config, error) {
	log = logger.OrDefault(log)

	path := s.ConfigPath
	if path == "" {
		fetched, err := fetchConfig(ctx, s.WorkDir, platform, g, repo)
		if err != nil {
			return nil, err
		}
		path = fetched
	}
	log.Info("[Pipeline] Using configuration %s", path)

	f, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if f.Repository == "" {
		f.Repository = repo
	}
	if repo != "" && f.Repository != repo {
		log.Warn("[Pipeline] Configuration names %s, building %s", f.Repository, repo)
		f.Repository = repo
	}
	return config.Resolve(*f)
}

func fetchConfig(ctx context.Context, workDir string, platform provider.Platform, g *gate.Gate, repo string) (string, error) {
	if repo == "" {
		return "", fmt.Errorf("%w: no repository given", config.ErrNoConfig)
	}

	for _, name := range config.DefaultFileNames {
		fc, err := gate.Do(ctx, g, "get config file", func(ctx context.Context) (*provider.FileContent, error) {
			return platform.GetContent(ctx, repo, name, "")
		})
		if errors.Is(err, provider.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to fetch %s from %s: %w", name, repo, err)
		}

		dir := filepath.Join(workDir, "config", strings.ReplaceAll(repo, "/", "-"))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, fc.Content, 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w in %s", config.ErrNoConfig, repo)
}

// Viewer is a read-only results archive for viewers such as the MCP server
// and the terminal UI.
type Viewer struct {
	Lister archive.Lister

	// Following is set when results arrive as events after opening, so
	// the lister starts empty.
	Following bool

	close func() error
}

// Close releases the connections behind the viewer.
func (v *Viewer) Close() error {
	if v.close == nil {
		return nil
	}
	return v.close()
}

// OpenLister opens the results archive described by s. Postgres is queried
// directly when a DSN is configured; otherwise report events are followed
// from Redpanda into memory under groupID.
func OpenLister(ctx context.Context, s *config.Settings, groupID string, log logger.Logger) (*Viewer, error) {
	log = logger.OrDefault(log)

	switch {
	case s.PostgresDSN != "":
		pg, err := archive.NewPostgresArchive(ctx, s.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open Postgres archive: %w", err)
		}
		log.Info("[Pipeline] Listing results from Postgres")
		return &Viewer{Lister: pg, close: pg.Close}, nil

	case len(s.RedpandaBrokers) > 0:
		b, err := broker.NewRedpandaBroker(s.RedpandaBrokers, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
		}
		mem := archive.NewMemoryArchive()
		if err := Follow(ctx, b, mem, groupID, log); err != nil {
			b.Close()
			return nil, err
		}
		log.Info("[Pipeline] Following report events from %s", strings.Join(s.RedpandaBrokers, ","))
		return &Viewer{Lister: mem, Following: true, close: b.Close}, nil
	}
	return nil, ErrNoArchive
}
