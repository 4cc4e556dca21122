package ramble

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramblegraph/ramble/companion"
	"github.com/ramblegraph/ramble/graph"
)

// cycle6 builds 0 -> 1 -> 2 -> 3 -> 4 -> 5 -> 0.
func cycle6(numShards int) *graph.Memory {
	g := graph.NewMemory(6, numShards)
	for v := graph.Vertex(0); v < 6; v++ {
		g.AddEdge(v, graph.Vertex((uint32(v)+1)%6))
	}
	return g
}

// star builds hub 0 <-> leaves 1..n: the hub points at every leaf and every
// leaf points back at the hub only.
func star(n uint32) *graph.Memory {
	g := graph.NewMemory(n+1, 2)
	for leaf := graph.Vertex(1); leaf <= graph.Vertex(n); leaf++ {
		g.AddEdge(0, leaf)
		g.AddEdge(leaf, 0)
	}
	return g
}

func TestNewRejectsBadConfig(t *testing.T) {
	g := cycle6(2)

	for name, cfg := range map[string]Config{
		"no sources":      {NumSources: 0, WalksPerSource: 1, Passes: 1},
		"range overflow":  {FirstSource: 4, NumSources: 3, WalksPerSource: 1, Passes: 1},
		"no walks":        {NumSources: 1, Passes: 1},
		"no passes":       {NumSources: 1, WalksPerSource: 1},
		"bad reset":       {NumSources: 1, WalksPerSource: 1, Passes: 1, ResetProbability: 1},
		"negative circle": {NumSources: 1, WalksPerSource: 1, Passes: 1, CircleSize: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(g, cfg)
			var ce *ConfigError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestPipelineCycleScenario(t *testing.T) {
	// Ego 0 walking a 6-cycle for 3 passes: the first pass is the untracked
	// first hop, so tracked mass lands on vertices 2 and 3, closest first.
	g := cycle6(3)

	p, err := New(g, Config{
		NumSources:       1,
		WalksPerSource:   1000,
		Passes:           3,
		ResetProbability: DefaultResetProbability,
		CircleSize:       5,
	}, WithSeed(11))
	require.NoError(t, err)

	recs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	circle, err := p.Companion().GetTop(0, 5)
	require.NoError(t, err)
	require.NotEmpty(t, circle)
	assert.Equal(t, graph.Vertex(2), circle[0].Vertex, "nearest reachable vertex dominates")
	for _, vc := range circle {
		assert.NotContains(t, []graph.Vertex{0, 1}, vc.Vertex, "ego and its out-neighbor are never counted")
		assert.NotContains(t, []graph.Vertex{4, 5}, vc.Vertex, "3 passes cannot reach past vertex 3")
	}
	if len(circle) > 1 {
		assert.Equal(t, graph.Vertex(3), circle[1].Vertex)
		assert.Greater(t, circle[0].Count, circle[1].Count)
	}

	assert.Equal(t, graph.Vertex(0), recs[0].Ego)
	require.NotEmpty(t, recs[0].Ranked)
	for _, r := range recs[0].Ranked {
		assert.NotEqual(t, graph.Vertex(0), r.Vertex, "never recommend the ego itself")
		assert.NotEqual(t, graph.Vertex(1), r.Vertex, "never recommend an existing out-neighbor")
	}
}

func TestPipelineCycleVisitConservation(t *testing.T) {
	// With resets disabled every walk takes exactly one step per pass. The
	// first hop and the not-tracked rule suppress pass 1; passes 2 and 3
	// each deposit the full cohort on one vertex.
	const walks = 500
	g := cycle6(2)

	p, err := New(g, Config{
		NumSources:     1,
		WalksPerSource: walks,
		Passes:         3,
	}, WithSeed(5))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	circle, err := p.Companion().GetTop(0, 10)
	require.NoError(t, err)
	require.Len(t, circle, 2)

	var total uint64
	for _, vc := range circle {
		total += uint64(vc.Count)
	}
	assert.Equal(t, uint64(2*walks), total, "retained visits account for every unsuppressed step")
}

func TestPipelineStarHubEgo(t *testing.T) {
	// Every vertex the hub's walks can touch is the hub itself or one of
	// its out-neighbors, so nothing is ever counted and nothing can be
	// recommended. Walks still step every pass instead of getting stuck.
	g := star(10)

	p, err := New(g, Config{
		NumSources:       1,
		WalksPerSource:   500,
		Passes:           4,
		ResetProbability: DefaultResetProbability,
	}, WithSeed(9))
	require.NoError(t, err)

	recs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Ranked)

	circle, err := p.Companion().GetTop(0, 10)
	require.NoError(t, err)
	assert.Empty(t, circle)
}

func TestPipelineStarLeafEgoUniform(t *testing.T) {
	// A leaf's walks bounce through the hub and land uniformly on the other
	// leaves, so its circle of trust is near-uniform over {2..10}.
	const walks = 2000
	g := star(10)

	p, err := New(g, Config{
		FirstSource:    1,
		NumSources:     1,
		WalksPerSource: walks,
		Passes:         3,
	}, WithSeed(21))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	circle, err := p.Companion().GetTop(1, 20)
	require.NoError(t, err)
	require.Len(t, circle, 9, "all leaves but the ego itself")

	// Each of the 10 hub out-edges is equally likely; landing back on the
	// ego is suppressed, leaving ~walks/10 per other leaf.
	for _, vc := range circle {
		assert.InDelta(t, walks/10, vc.Count, 45)
	}
}

type failingCompanion struct {
	companion.Companion
	failEgo graph.Vertex
}

func (f *failingCompanion) GetTop(source graph.Vertex, k int) ([]companion.VertexCount, error) {
	if source == f.failEgo {
		return nil, errors.New("companion offline")
	}
	return f.Companion.GetTop(source, k)
}

func TestPipelineAggregatorFailureIsPerEgo(t *testing.T) {
	g := cycle6(2)
	comp := &failingCompanion{
		Companion: companion.NewLocal(companion.LocalOptions{}),
		failEgo:   1,
	}

	p, err := New(g, Config{
		NumSources:     3,
		WalksPerSource: 100,
		Passes:         3,
	}, WithSeed(2), WithCompanion(comp))
	require.NoError(t, err)

	recs, err := p.Run(context.Background())

	var be *BatchError
	require.ErrorAs(t, err, &be)
	require.Len(t, be.Failures, 1)
	assert.Equal(t, graph.Vertex(1), be.Failures[0].Ego)

	// The other egos still got their lists.
	require.Len(t, recs, 3)
	assert.NotEmpty(t, recs[0].Ranked)
	assert.Empty(t, recs[1].Ranked)
	assert.NotEmpty(t, recs[2].Ranked)
}

type brokenNeighbors struct {
	graph.Sharded
	failVertex graph.Vertex
}

func (b *brokenNeighbors) OutNeighbors(ctx context.Context, v graph.Vertex) ([]graph.Vertex, error) {
	if v == b.failVertex {
		return nil, errors.New("disk gone")
	}
	return b.Sharded.OutNeighbors(ctx, v)
}

func TestPipelineGraphFailureAbortsBatch(t *testing.T) {
	g := &brokenNeighbors{Sharded: cycle6(2), failVertex: 2}

	p, err := New(g, Config{
		NumSources:     3,
		WalksPerSource: 100,
		Passes:         3,
	}, WithSeed(2))
	require.NoError(t, err)

	recs, err := p.Run(context.Background())
	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Nil(t, recs)
}

type brokenShards struct {
	graph.Sharded
}

func (b *brokenShards) LoadShard(context.Context, int) (*graph.Shard, error) {
	return nil, graph.ErrCorruptShard
}

func TestPipelineWalkStageFailureIsFatal(t *testing.T) {
	p, err := New(&brokenShards{Sharded: cycle6(2)}, Config{
		NumSources:     1,
		WalksPerSource: 10,
		Passes:         1,
	})
	require.NoError(t, err)

	recs, err := p.Run(context.Background())
	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.ErrorIs(t, err, graph.ErrCorruptShard)
	assert.Nil(t, recs)
}

func TestPipelineMetricsAndOrdering(t *testing.T) {
	g := cycle6(2)
	metrics := &BasicMetricsCollector{}

	p, err := New(g, Config{
		NumSources:     4,
		WalksPerSource: 200,
		Passes:         3,
	}, WithSeed(4), WithMetricsCollector(metrics), WithWorkers(2))
	require.NoError(t, err)

	recs, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for i, r := range recs {
		assert.Equal(t, graph.Vertex(i), r.Ego, "results in ascending ego order")
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.WalkStageCount)
	assert.Equal(t, int64(3*4*200), stats.WalkSteps)
	assert.Equal(t, int64(4), stats.EgoCount)
	assert.Zero(t, stats.EgoErrors)
	assert.Equal(t, int64(1), stats.BatchCount)
	assert.Zero(t, stats.BatchFailed)
}
