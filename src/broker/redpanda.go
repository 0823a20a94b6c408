package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"decent-ci/src/logger"
)

const clientID = "decent-ci"

// RedpandaBroker is a Kafka-compatible broker implementation using franz-go.
type RedpandaBroker struct {
	client    *kgo.Client
	brokers   []string
	log       logger.Logger
	mu        sync.RWMutex
	consumers map[string]*kgo.Client // topic:groupID -> consumer client
	closed    bool
}

// NewRedpandaBroker creates a producer connected to brokers
// (e.g. ["localhost:19092"]). Consumers are created on Subscribe.
func NewRedpandaBroker(brokers []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker address is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return &RedpandaBroker{
		client:    client,
		brokers:   brokers,
		log:       logger.OrDefault(log),
		consumers: make(map[string]*kgo.Client),
	}, nil
}

// Publish produces one record synchronously.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	if err := b.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Subscribe joins groupID and consumes topic from the earliest offset the
// group has not committed. The returned channel is closed when ctx is done
// or the broker is closed.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	consumerKey := topic + ":" + groupID
	if _, exists := b.consumers[consumerKey]; exists {
		return nil, fmt.Errorf("consumer already exists for topic %s and group %s", topic, groupID)
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	b.consumers[consumerKey] = consumer

	msgChan := make(chan Message, subscriberBuffer)
	go b.consumeLoop(ctx, consumerKey, consumer, msgChan)
	return msgChan, nil
}

func (b *RedpandaBroker) consumeLoop(ctx context.Context, key string, consumer *kgo.Client, msgChan chan<- Message) {
	defer close(msgChan)
	defer b.release(key, consumer)

	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}

		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.Canceled) {
				return
			}
			b.log.Warn("[RedpandaBroker] Fetch error on %s/%d: %v", fe.Topic, fe.Partition, fe.Err)
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			msg := Message{
				Topic:     record.Topic,
				Key:       string(record.Key),
				Value:     record.Value,
				Offset:    record.Offset,
				Partition: record.Partition,
				Timestamp: record.Timestamp.UnixMilli(),
			}
			select {
			case msgChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// release drops a consumer whose loop ended on its own.
func (b *RedpandaBroker) release(key string, consumer *kgo.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumers[key] == consumer {
		delete(b.consumers, key)
		consumer.Close()
	}
}

// Close shuts down the broker and all consumer connections.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for key, consumer := range b.consumers {
		consumer.Close()
		delete(b.consumers, key)
	}
	b.client.Close()
	return nil
}
