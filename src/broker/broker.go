// Package broker moves report events between the build driver and the
// result viewers.
package broker

import (
	"errors"

	"decent-ci/src/contracts"
)

// ErrClosed is returned by operations on a closed broker.
var ErrClosed = errors.New("broker is closed")

// Broker abstracts event publishing and consumption.
// InMemoryBroker serves a single process; RedpandaBroker is used when
// builders and viewers run separately.
type Broker interface {
	contracts.Publisher
	contracts.Subscriber

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message is re-exported for callers that only import broker.
type Message = contracts.Message
