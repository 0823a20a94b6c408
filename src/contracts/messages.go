package contracts

import (
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// TopicReports carries one ReportEvent per pending or final results report.
// Key: {device_id}
const TopicReports = "decent_ci.reports"

// SchemaVersion is bumped whenever ReportEvent changes incompatibly.
const SchemaVersion uint16 = 1

// ErrSchemaVersion is returned by Decode for events written by an
// incompatible producer.
var ErrSchemaVersion = errors.New("unsupported report event schema version")

// ReportEvent announces that a results document was written to the archive.
type ReportEvent struct {
	Version uint16 `msgpack:"version"`

	// Archive identifier and path of the document.
	ID   string `msgpack:"id"`
	Path string `msgpack:"path"`

	Repository    string `msgpack:"repository"`
	Ref           string `msgpack:"ref"`
	CommitSHA     string `msgpack:"commit_sha"`
	PullRequestID int    `msgpack:"pull_request_id,omitempty"`
	DeviceID      string `msgpack:"device_id"`
	Status        string `msgpack:"status"`
	Pending       bool   `msgpack:"pending"`

	PublishedAt time.Time `msgpack:"published_at"`

	// Document is the marshaled results document (front matter and body).
	Document []byte `msgpack:"document"`
}

// Key returns the partition key of the event.
func (e ReportEvent) Key() string {
	return e.DeviceID
}

// Encode serializes an event. A zero Version is stamped with SchemaVersion.
func Encode(e ReportEvent) ([]byte, error) {
	if e.Version == 0 {
		e.Version = SchemaVersion
	}
	data, err := msgpack.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report event: %w", err)
	}
	return data, nil
}

// Decode parses an event produced by Encode.
func Decode(data []byte) (ReportEvent, error) {
	var e ReportEvent
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return ReportEvent{}, fmt.Errorf("failed to decode report event: %w", err)
	}
	if e.Version != SchemaVersion {
		return ReportEvent{}, fmt.Errorf("%w: %d", ErrSchemaVersion, e.Version)
	}
	return e, nil
}
