package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed(t *testing.T) {
	t.Parallel()

	c := NewFixed(time.Unix(1000, 0))
	assert.Equal(t, int64(1000), c.Now().Unix())

	c.Advance(31 * time.Second)
	assert.Equal(t, int64(1031), c.Now().Unix())

	c.Set(time.Unix(5, 0))
	assert.Equal(t, int64(5), c.Now().Unix())
}

func TestTimeClocker(t *testing.T) {
	t.Parallel()

	before := time.Now()
	got := New().Now()
	assert.False(t, got.Before(before))
}
