package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUnsupported is returned when a feature is not supported by the selected broker.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrDestinationRequired is returned when the topic or subject is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("messaging: publisher closed")
)

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	// Publish sends a message to the destination.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key is used by Kafka for partitioning.
	Key []byte

	// Headers support arbitrary binary values and duplicate keys.
	Headers []Header

	// Attributes is a convenience for brokers that model string attributes (Pub/Sub).
	Attributes map[string]string

	// OrderingKey is used by Google Pub/Sub.
	OrderingKey string

	// Delay is used for deferred delivery when supported.
	Delay time.Duration
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// MessageID is the broker-assigned message ID.
	MessageID string
	// Topic is the destination the message was accepted on.
	Topic string
	// Timestamp is when the broker accepted the message.
	Timestamp time.Time
}

// stringAttributes merges msg.Attributes and msg.Headers into one map for
// brokers that only carry string attributes. Explicit attributes win.
func stringAttributes(msg OutgoingMessage) map[string]string {
	if len(msg.Attributes) == 0 && len(msg.Headers) == 0 {
		return nil
	}

	out := make(map[string]string, len(msg.Attributes)+len(msg.Headers))
	for _, h := range msg.Headers {
		if h.Key == "" {
			continue
		}
		out[h.Key] = string(h.Value)
	}
	for k, v := range msg.Attributes {
		out[k] = v
	}
	return out
}

// precheck rejects a publish before it reaches the broker. Brokers without
// deferred delivery pass delayOK=false.
func precheck(ctx context.Context, destination string, msg OutgoingMessage, delayOK, closed bool) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case destination == "":
		return ErrDestinationRequired
	case msg.Delay > 0 && !delayOK:
		return ErrUnsupported
	case closed:
		return ErrClosed
	}
	return nil
}
