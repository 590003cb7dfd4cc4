package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_CollectsErrors(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	ctx := context.Background()

	m.Go(ctx, func(context.Context) error { return nil })
	m.Go(ctx, func(context.Context) error { return errors.New("first") })
	m.Go(ctx, func(context.Context) error { panic("recovered") })

	err := m.Wait()
	assert.ErrorContains(t, err, "first")

	var ran atomic.Bool
	m.Go(ctx, func(context.Context) error { ran.Store(true); return nil })
	assert.NoError(t, m.Wait())
	assert.False(t, ran.Load(), "closed manager drops tasks")
}

func TestManager_Every(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	m.Every(ctx, "tick", 5*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 2 {
			panic("keeps running")
		}
		return errors.New("logged only")
	})

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, m.Wait())
}

func TestManager_Nil(t *testing.T) {
	t.Parallel()

	var m *Manager
	m.Go(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, m.Wait())
}
