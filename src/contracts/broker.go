// Package contracts defines the events decent-ci publishes and the
// interfaces used to move them between processes.
package contracts

import "context"

// Publisher sends encoded events to a topic. key selects the partition on
// brokers that partition.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, value []byte) error
}

// Message is a consumed event as delivered by a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}

// Subscriber delivers messages for a topic until ctx is cancelled or the
// broker is closed. groupID coordinates consumers on distributed brokers.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)
}
