package lock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Local is an in-process Locker. The ttl argument is ignored since a
// process cannot crash while its own goroutine holds the key.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	held    *atomic.Int64
	opts    options
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty Local locker.
func NewLocal(opts ...Option) *Local {
	return &Local{
		entries: make(map[string]*localEntry),
		held:    atomic.NewInt64(0),
		opts:    newOptions(opts),
	}
}

// Acquire implements Locker.
func (l *Local) Acquire(ctx context.Context, key string, _ time.Duration) (Release, error) {
	e := l.ref(key)

	timer := time.NewTimer(l.opts.wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
	case <-timer.C:
		l.unref(key, e)
		return nil, ErrNotAcquired
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}

	l.held.Inc()

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-e.ch
			l.held.Dec()
			l.unref(key, e)
		})
		return nil
	}, nil
}

// Held returns how many keys are currently owned.
func (l *Local) Held() int64 {
	return l.held.Load()
}

func (l *Local) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) unref(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
