package companion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramblegraph/ramble/graph"
)

func record(t *testing.T, c *Local, source graph.Vertex, visits ...graph.Vertex) {
	t.Helper()
	batch := make([]Visit, len(visits))
	for i, v := range visits {
		batch[i] = Visit{Source: source, Visited: v}
	}
	require.NoError(t, c.RecordVisits(batch))
}

func TestGetTopOrdering(t *testing.T) {
	c := NewLocal(LocalOptions{})

	record(t, c, 1, 10, 10, 10, 20, 20, 30, 40, 40)

	top, err := c.GetTop(1, 10)
	require.NoError(t, err)
	assert.Equal(t, []VertexCount{
		{Vertex: 10, Count: 3},
		{Vertex: 20, Count: 2},
		{Vertex: 40, Count: 2}, // tie with 20 broken by smaller id first
		{Vertex: 30, Count: 1},
	}, top)
}

func TestGetTopTruncatesToK(t *testing.T) {
	c := NewLocal(LocalOptions{})
	record(t, c, 1, 10, 20, 30, 40, 50)

	top, err := c.GetTop(1, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	top, err = c.GetTop(1, 0)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestGetTopUnseenSource(t *testing.T) {
	c := NewLocal(LocalOptions{})
	top, err := c.GetTop(99, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestNotTrackedFilter(t *testing.T) {
	c := NewLocal(LocalOptions{})
	require.NoError(t, c.SetNotTracked(1, []graph.Vertex{1, 10, 11}))

	record(t, c, 1, 10, 11, 12, 1)
	record(t, c, 2, 10) // other sources are unaffected

	top, err := c.GetTop(1, 10)
	require.NoError(t, err)
	assert.Equal(t, []VertexCount{{Vertex: 12, Count: 1}}, top)

	top, err = c.GetTop(2, 10)
	require.NoError(t, err)
	assert.Equal(t, []VertexCount{{Vertex: 10, Count: 1}}, top)
}

func TestSourcesDoNotInterfere(t *testing.T) {
	c := NewLocal(LocalOptions{})
	record(t, c, 1, 10, 10)
	record(t, c, 2, 20)

	top, err := c.GetTop(1, 10)
	require.NoError(t, err)
	assert.Equal(t, []VertexCount{{Vertex: 10, Count: 2}}, top)

	assert.Equal(t, uint64(2), c.VisitCount(1))
	assert.Equal(t, uint64(1), c.VisitCount(2))
}

func TestPruneUnderBudget(t *testing.T) {
	// Budget admits ~8 entries; ingest 100 singletons plus a few heavy hitters.
	c := NewLocal(LocalOptions{MemoryBudgetBytes: 8 * bytesPerEntry})

	for i := 0; i < 20; i++ {
		record(t, c, 1, 500, 501) // heavy hitters
	}
	for v := graph.Vertex(1000); v < 1100; v++ {
		record(t, c, 1, v) // singletons, prune fodder
	}

	top, err := c.GetTop(1, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, graph.Vertex(500), top[0].Vertex, "heavy hitters survive pruning")
	assert.Equal(t, graph.Vertex(501), top[1].Vertex)
	assert.Equal(t, uint32(20), top[0].Count)

	// Retained entry estimate is back under control.
	assert.Less(t, c.VisitCount(1), uint64(140))
}
