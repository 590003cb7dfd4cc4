package uid

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflake_Generate(t *testing.T) {
	t.Parallel()

	_, err := NewSnowflake(5000)
	assert.Error(t, err)

	gen, err := NewSnowflake(1)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[int64]struct{}, 1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Go(func() {
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}

func TestUUID_Generate(t *testing.T) {
	t.Parallel()

	gen := NewUUID()
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14])
}

func TestObjectID_Generate(t *testing.T) {
	t.Parallel()

	gen, err := NewObjectID()
	require.NoError(t, err)
	gen.now = func() time.Time { return time.UnixMilli(0x0102030405) }

	a := gen.Generate()
	b := gen.Generate()

	assert.Len(t, a, 48)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "000102030405", a[:12])
	assert.Equal(t, a[12:28], b[12:28], "node and pid are stable")
}

func TestInterfaces(t *testing.T) {
	t.Parallel()

	var _ NumberID = (*Snowflake)(nil)
	var _ StringID = (*UUID)(nil)
	var _ StringID = (*ObjectID)(nil)
}
