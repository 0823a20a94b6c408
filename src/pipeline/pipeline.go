// Package pipeline wires the components of a run together: it picks the
// event and archive infrastructure for the deployment mode and drives
// candidates through their variants one at a time.
package pipeline

import (
	"context"
	"fmt"

	"decent-ci/src/archive"
	"decent-ci/src/broker"
	"decent-ci/src/config"
	"decent-ci/src/gate"
	"decent-ci/src/logger"
	"decent-ci/src/provider"
)

// Mode selects the infrastructure a run uses.
type Mode int

const (
	// LocalMode keeps events in process and lists results from memory.
	LocalMode Mode = iota
	// DistributedMode publishes events to Redpanda and, when a DSN is
	// configured, mirrors results into Postgres.
	DistributedMode
)

func (m Mode) String() string {
	switch m {
	case LocalMode:
		return "local"
	case DistributedMode:
		return "distributed"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// DetectMode returns DistributedMode when Redpanda brokers are configured.
func DetectMode(s *config.Settings) Mode {
	if s != nil && len(s.RedpandaBrokers) > 0 {
		return DistributedMode
	}
	return LocalMode
}

// Infra is the broker and archive stack of a run.
type Infra struct {
	Mode   Mode
	Broker broker.Broker

	// Archive receives every results document; the results repository is
	// the primary copy.
	Archive archive.Archive

	// Lister serves archived results to viewers.
	Lister archive.Lister

	postgres *archive.PostgresArchive
}

// Open builds the infrastructure for the mode detected from s. Results are
// written to cfg.ResultsRepository through platform and mirrored into a
// listable archive.
func Open(ctx context.Context, s *config.Settings, cfg *config.Config, platform provider.Platform, g *gate.Gate, log logger.Logger) (*Infra, error) {
	log = logger.OrDefault(log)
	primary := archive.NewGitHubArchive(platform, g, cfg.ResultsRepository, cfg.ResultsBranch, log)

	mode := DetectMode(s)
	infra := &Infra{Mode: mode}

	switch mode {
	case DistributedMode:
		b, err := broker.NewRedpandaBroker(s.RedpandaBrokers, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
		}
		infra.Broker = b

		if s.PostgresDSN != "" {
			pg, err := archive.NewPostgresArchive(ctx, s.PostgresDSN)
			if err != nil {
				b.Close()
				return nil, fmt.Errorf("failed to open Postgres archive: %w", err)
			}
			infra.postgres = pg
			infra.Lister = pg
			infra.Archive = archive.NewMirrored(primary, log, pg)
		}
	default:
		infra.Broker = broker.NewInMemoryBroker(log)
	}

	if infra.Archive == nil {
		mem := archive.NewMemoryArchive()
		infra.Lister = mem
		infra.Archive = archive.NewMirrored(primary, log, mem)
	}

	log.Info("[Pipeline] Running in %s mode", mode)
	return infra, nil
}

// Close releases the broker and database connections.
func (i *Infra) Close() error {
	var firstErr error
	if i.Broker != nil {
		firstErr = i.Broker.Close()
	}
	if i.postgres != nil {
		if err := i.postgres.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
