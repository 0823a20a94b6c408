package pipeline

import (
	"context"
	"fmt"
	"os"

	"decent-ci/src/archive"
	"decent-ci/src/broker"
	"decent-ci/src/contracts"
	"decent-ci/src/logger"
	"decent-ci/src/results"
)

// Follow copies every report event into mem until ctx is done. It lets a
// viewer list results without a database. Entries are keyed by archive
// path because blob ids change with every revision.
func Follow(ctx context.Context, sub contracts.Subscriber, mem *archive.MemoryArchive, groupID string, log logger.Logger) error {
	log = logger.OrDefault(log)
	events, err := broker.SubscribeReports(ctx, sub, groupID, log)
	if err != nil {
		return fmt.Errorf("failed to subscribe to reports: %w", err)
	}

	go func() {
		for e := range events {
			doc, err := results.Parse(e.Document)
			if err != nil {
				// Errors always reach stderr, even behind a silent logger.
				fmt.Fprintf(os.Stderr, "[Pipeline] Dropping report %s: %v\n", e.ID, err)
				continue
			}
			mem.Put(e.Path, e.Path, doc)
			log.Debug("[Pipeline] Stored report %s for %s (pending=%t)", e.Path, e.DeviceID, e.Pending)
		}
	}()
	return nil
}
