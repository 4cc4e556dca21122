package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ramblegraph/ramble/internal/resource"
)

func byteSize(b []byte) int64 { return int64(len(b)) }

func TestLRUEviction(t *testing.T) {
	c := NewLRU[int, []byte](50, byteSize, nil)

	c.Set(1, make([]byte, 20))
	c.Set(2, make([]byte, 20))
	assert.Equal(t, int64(40), c.Size())

	// 60 > 50: inserting a third evicts the least recently used (key 1).
	c.Set(3, make([]byte, 20))
	assert.Equal(t, int64(40), c.Size())

	_, ok := c.Get(1)
	assert.False(t, ok, "key 1 should be evicted")
	_, ok = c.Get(2)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestLRURecencyOrder(t *testing.T) {
	c := NewLRU[int, []byte](40, byteSize, nil)

	c.Set(1, make([]byte, 20))
	c.Set(2, make([]byte, 20))

	// Touch key 1 so key 2 becomes the eviction candidate.
	_, ok := c.Get(1)
	assert.True(t, ok)

	c.Set(3, make([]byte, 20))

	_, ok = c.Get(2)
	assert.False(t, ok, "key 2 should be evicted")
	_, ok = c.Get(1)
	assert.True(t, ok)
}

func TestLRUOversizedValueNotCached(t *testing.T) {
	c := NewLRU[int, []byte](10, byteSize, nil)
	c.Set(1, make([]byte, 100))
	assert.Equal(t, int64(0), c.Size())
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestLRUSharedBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 30})
	c := NewLRU[int, []byte](100, byteSize, rc)

	c.Set(1, make([]byte, 20))
	assert.Equal(t, int64(20), rc.MemoryUsage())

	// Local capacity allows it, global budget does not.
	c.Set(2, make([]byte, 20))
	_, ok := c.Get(2)
	assert.False(t, ok, "global budget should refuse key 2")

	c.Purge()
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestLRUStats(t *testing.T) {
	c := NewLRU[int, []byte](100, byteSize, nil)
	c.Set(1, make([]byte, 10))

	c.Get(1)
	c.Get(2)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}
