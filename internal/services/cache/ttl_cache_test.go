package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	c := NewTTLCache()

	c.Set("k", 42, 0)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := NewTTLCache()

	c.Set("k", "v", 20*time.Millisecond)
	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()

	c.Set("k", "v", 0)
	time.Sleep(10 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok)
}
