package messaging

import (
	"context"
	"time"
)

// Nop accepts and discards every message.
type Nop struct{}

// NewNop returns a Publisher that drops messages.
func NewNop() *Nop { return &Nop{} }

// Close is a no-op.
func (*Nop) Close() error { return nil }

// Publish validates the destination and discards msg.
func (*Nop) Publish(ctx context.Context, destination string, _ OutgoingMessage) (PublishResult, error) {
	if err := precheck(ctx, destination, OutgoingMessage{}, true, false); err != nil {
		return PublishResult{}, err
	}
	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}
