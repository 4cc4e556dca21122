package graph

import (
	"context"
)

// Memory is an in-memory Sharded graph. It backs tests, examples, and runs
// whose graph fits in RAM; shard intervals split the vertex range evenly.
type Memory struct {
	adj        [][]Vertex
	boundaries []Vertex // len numShards+1
}

// NewMemory creates an empty graph with the given vertex id space, split
// into numShards contiguous intervals.
func NewMemory(numVertices uint32, numShards int) *Memory {
	if numShards < 1 {
		numShards = 1
	}
	if uint32(numShards) > numVertices && numVertices > 0 {
		numShards = int(numVertices)
	}

	boundaries := make([]Vertex, numShards+1)
	for i := 0; i <= numShards; i++ {
		boundaries[i] = Vertex(uint64(numVertices) * uint64(i) / uint64(numShards))
	}

	return &Memory{
		adj:        make([][]Vertex, numVertices),
		boundaries: boundaries,
	}
}

// AddEdge appends a directed edge. Neighbor order is insertion order, which
// keeps OutNeighbors stable within a run.
func (g *Memory) AddEdge(from, to Vertex) {
	g.adj[from] = append(g.adj[from], to)
}

// NumVertices returns the size of the vertex id space.
func (g *Memory) NumVertices() uint32 { return uint32(len(g.adj)) }

// NumShards returns the number of partitions.
func (g *Memory) NumShards() int { return len(g.boundaries) - 1 }

// ShardInterval returns the half-open interval of shard i.
func (g *Memory) ShardInterval(i int) (lo, hi Vertex) {
	return g.boundaries[i], g.boundaries[i+1]
}

// LoadShard materializes shard i as a CSR view.
func (g *Memory) LoadShard(_ context.Context, i int) (*Shard, error) {
	if i < 0 || i >= g.NumShards() {
		return nil, ErrShardOutOfRange
	}
	lo, hi := g.ShardInterval(i)
	return NewShard(lo, g.adj[lo:hi]), nil
}

// OutNeighbors returns v's out-neighbor list.
func (g *Memory) OutNeighbors(_ context.Context, v Vertex) ([]Vertex, error) {
	if uint32(v) >= uint32(len(g.adj)) {
		return nil, ErrVertexOutOfRange
	}
	return g.adj[v], nil
}

// OutDegree returns v's out-degree.
func (g *Memory) OutDegree(_ context.Context, v Vertex) (int, error) {
	if uint32(v) >= uint32(len(g.adj)) {
		return 0, ErrVertexOutOfRange
	}
	return len(g.adj[v]), nil
}
