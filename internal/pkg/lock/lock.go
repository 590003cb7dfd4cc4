// Package lock provides per-key mutual exclusion for work that must not
// interleave, such as two state transitions on the same account.
//
// Redis backs the lock across replicas; Local serves single-process setups
// and tests. Acquire waits up to the configured wait time and then gives up
// with ErrNotAcquired.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired indicates the key stayed held for the whole wait.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker acquires exclusive ownership of a key.
type Locker interface {
	// Acquire blocks until key is owned or wait elapses. The returned release
	// must be called exactly once; ttl bounds how long a crashed holder can
	// keep the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// Release gives up ownership. Releasing a lock that has already expired and
// been taken by someone else is a no-op.
type Release func(ctx context.Context) error

const (
	// DefaultWait is how long Acquire waits for a busy key.
	DefaultWait = 2 * time.Second
	// DefaultPoll is the Redis polling interval while waiting.
	DefaultPoll = 25 * time.Millisecond
)

// Option configures a Locker.
type Option func(*options)

type options struct {
	wait time.Duration
	poll time.Duration
}

// WithWait sets how long Acquire waits for a busy key.
func WithWait(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.wait = d
		}
	}
}

// WithPoll sets the polling interval used by the Redis locker.
func WithPoll(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{wait: DefaultWait, poll: DefaultPoll}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
