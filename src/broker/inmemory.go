package broker

import (
	"context"
	"sync"
	"time"

	"decent-ci/src/logger"
)

const subscriberBuffer = 100

// InMemoryBroker fans every published message out to all current
// subscribers of its topic. Messages published before a subscription are
// not replayed.
type InMemoryBroker struct {
	mu          sync.Mutex
	subscribers map[string][]chan Message
	offsets     map[string]int64
	closed      bool
	log         logger.Logger
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker(log logger.Logger) *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]chan Message),
		offsets:     make(map[string]int64),
		log:         logger.OrDefault(log),
	}
}

// Publish delivers value to every subscriber of topic. A subscriber whose
// buffer is full blocks the publisher until ctx is done.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.offsets[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.offsets[topic]++

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.log.Debug("[InMemoryBroker] Published to topic '%s' (key %s, %d bytes)", topic, key, len(value))
	return nil
}

// Subscribe returns a channel receiving messages for topic. The channel is
// closed when ctx is cancelled or the broker is closed. groupID is ignored.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	ch := make(chan Message, subscriberBuffer)
	b.subscribers[topic] = append(b.subscribers[topic], ch)

	go func() {
		<-ctx.Done()
		b.unsubscribe(topic, ch)
	}()
	return ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[topic]
	for i, c := range subs {
		if c == ch {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close closes every subscriber channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
	return nil
}
