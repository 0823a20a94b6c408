package broker

import (
	"context"
	"fmt"

	"decent-ci/src/contracts"
	"decent-ci/src/logger"
)

// PublishReport encodes e and publishes it on contracts.TopicReports.
func PublishReport(ctx context.Context, p contracts.Publisher, e contracts.ReportEvent) error {
	data, err := contracts.Encode(e)
	if err != nil {
		return err
	}
	if err := p.Publish(ctx, contracts.TopicReports, e.Key(), data); err != nil {
		return fmt.Errorf("failed to publish report for %s: %w", e.DeviceID, err)
	}
	return nil
}

// SubscribeReports decodes report events from contracts.TopicReports.
// Messages that fail to decode are logged and skipped.
func SubscribeReports(ctx context.Context, s contracts.Subscriber, groupID string, log logger.Logger) (<-chan contracts.ReportEvent, error) {
	msgs, err := s.Subscribe(ctx, contracts.TopicReports, groupID)
	if err != nil {
		return nil, err
	}
	log = logger.OrDefault(log)

	events := make(chan contracts.ReportEvent, subscriberBuffer)
	go func() {
		defer close(events)
		for msg := range msgs {
			e, err := contracts.Decode(msg.Value)
			if err != nil {
				log.Warn("[Broker] Skipping report at offset %d: %v", msg.Offset, err)
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
