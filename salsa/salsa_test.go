package salsa

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramblegraph/ramble/graph"
)

func buildGraph(n uint32, edges map[graph.Vertex][]graph.Vertex) *graph.Memory {
	g := graph.NewMemory(n, 1)
	for from, tos := range edges {
		for _, to := range tos {
			g.AddEdge(from, to)
		}
	}
	return g
}

func scoreSum(ss []Scored) float64 {
	var sum float64
	for _, s := range ss {
		sum += s.Score
	}
	return sum
}

func TestRankInvalidIterations(t *testing.T) {
	g := buildGraph(4, nil)
	_, err := Rank(context.Background(), g, []graph.Vertex{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidIterations)
}

func TestRankEmptyCircle(t *testing.T) {
	g := buildGraph(4, nil)
	res, err := Rank(context.Background(), g, nil, DefaultIterations)
	require.NoError(t, err)
	assert.Empty(t, res.Authorities())
	assert.Empty(t, res.TopAuthorities(10, nil))
}

func TestRankScoresSumToOne(t *testing.T) {
	g := buildGraph(10, map[graph.Vertex][]graph.Vertex{
		1: {5, 6},
		2: {5, 7},
		3: {6, 7, 8},
	})

	res, err := Rank(context.Background(), g, []graph.Vertex{1, 2, 3}, DefaultIterations)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scoreSum(res.Hubs()), 1e-9)
	assert.InDelta(t, 1.0, scoreSum(res.Authorities()), 1e-9)
}

func TestRankFavorsWellEndorsedAuthority(t *testing.T) {
	// Authority 5 is endorsed by all three hubs, 6 by one.
	g := buildGraph(10, map[graph.Vertex][]graph.Vertex{
		1: {5},
		2: {5},
		3: {5, 6},
	})

	res, err := Rank(context.Background(), g, []graph.Vertex{1, 2, 3}, DefaultIterations)
	require.NoError(t, err)

	top := res.TopAuthorities(10, nil)
	require.Len(t, top, 2)
	assert.Equal(t, graph.Vertex(5), top[0].Vertex)
	assert.Equal(t, graph.Vertex(6), top[1].Vertex)
	assert.Greater(t, top[0].Score, top[1].Score)
}

func TestRankZeroOutDegreeHub(t *testing.T) {
	// Hub 2 has no out-edges; it contributes no mass but must not break
	// the run or drag scores to NaN.
	g := buildGraph(10, map[graph.Vertex][]graph.Vertex{
		1: {5, 6},
	})

	res, err := Rank(context.Background(), g, []graph.Vertex{1, 2}, DefaultIterations)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scoreSum(res.Authorities()), 1e-9)
	for _, s := range res.Hubs() {
		assert.False(t, s.Score != s.Score, "score must not be NaN")
	}
}

func TestRankSymmetricStarIsUniform(t *testing.T) {
	// Leaves 1..10 all point back at the hub vertex 0. With the circle
	// equal to the leaves, every hub has the single authority 0 and the
	// structure is fully symmetric.
	edges := make(map[graph.Vertex][]graph.Vertex)
	circle := make([]graph.Vertex, 0, 10)
	for v := graph.Vertex(1); v <= 10; v++ {
		edges[v] = []graph.Vertex{0}
		circle = append(circle, v)
	}
	g := buildGraph(11, edges)

	res, err := Rank(context.Background(), g, circle, DefaultIterations)
	require.NoError(t, err)

	for _, h := range res.Hubs() {
		assert.InDelta(t, 0.1, h.Score, 1e-9)
	}
	auths := res.Authorities()
	require.Len(t, auths, 1)
	assert.InDelta(t, 1.0, auths[0].Score, 1e-9)
}

func TestTopAuthoritiesExcludeAndTieBreak(t *testing.T) {
	// Hubs 1 and 2 each endorse both authorities: 5 and 6 tie exactly.
	g := buildGraph(10, map[graph.Vertex][]graph.Vertex{
		1: {5, 6},
		2: {5, 6},
	})

	res, err := Rank(context.Background(), g, []graph.Vertex{1, 2}, DefaultIterations)
	require.NoError(t, err)

	top := res.TopAuthorities(10, nil)
	require.Len(t, top, 2)
	assert.Equal(t, graph.Vertex(5), top[0].Vertex, "ties break by ascending id")
	assert.Equal(t, graph.Vertex(6), top[1].Vertex)

	exclude := roaring.New()
	exclude.Add(5)
	top = res.TopAuthorities(10, exclude)
	require.Len(t, top, 1)
	assert.Equal(t, graph.Vertex(6), top[0].Vertex)

	assert.Len(t, res.TopAuthorities(1, nil), 1)
}

func TestRankDuplicateCircleEntries(t *testing.T) {
	g := buildGraph(10, map[graph.Vertex][]graph.Vertex{
		1: {5},
		2: {6},
	})

	res, err := Rank(context.Background(), g, []graph.Vertex{1, 2, 1}, DefaultIterations)
	require.NoError(t, err)
	assert.Len(t, res.Hubs(), 2, "duplicates collapse to one hub")
}
