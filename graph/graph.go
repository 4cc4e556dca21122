// Package graph provides access to a large directed graph partitioned into
// contiguous vertex-interval shards.
//
// The walk engine streams whole shards, one per processing pass step; the
// ranking stage issues point queries for out-neighbor lists. Both go through
// the interfaces below, so the graph can live in memory, on local disk, or
// in an object store without the callers changing.
package graph

import (
	"context"
	"errors"
	"fmt"
)

// Vertex is an internal graph vertex identifier. Internal ids are dense and
// stable for the lifetime of a run; translation to original domain ids is an
// external concern.
type Vertex uint32

// Graph answers out-neighbor queries.
//
// OutNeighbors must return neighbors in a stable order within a run.
// Implementations must be safe for concurrent readers; the returned slice
// must be treated as read-only.
type Graph interface {
	OutNeighbors(ctx context.Context, v Vertex) ([]Vertex, error)
	OutDegree(ctx context.Context, v Vertex) (int, error)
}

// Sharded is a Graph whose vertex range is partitioned into contiguous
// intervals, loadable one shard at a time.
type Sharded interface {
	Graph

	// NumVertices returns the size of the vertex id space.
	NumVertices() uint32
	// NumShards returns the number of partitions.
	NumShards() int
	// ShardInterval returns the half-open vertex interval [lo, hi) of shard i.
	ShardInterval(i int) (lo, hi Vertex)
	// LoadShard returns the decoded adjacency of shard i.
	LoadShard(ctx context.Context, i int) (*Shard, error)
}

var (
	// ErrVertexOutOfRange is returned for queries outside the graph's id space.
	ErrVertexOutOfRange = errors.New("graph: vertex out of range")
	// ErrShardOutOfRange is returned for shard indexes outside the partition count.
	ErrShardOutOfRange = errors.New("graph: shard index out of range")
	// ErrCorruptShard is returned when a shard blob cannot be decoded.
	ErrCorruptShard = errors.New("graph: corrupt shard")
	// ErrBadManifest is returned when the manifest is missing or inconsistent.
	ErrBadManifest = errors.New("graph: bad manifest")
)

// Shard holds the decoded adjacency of one partition in CSR form.
type Shard struct {
	lo, hi  Vertex   // half-open interval [lo, hi)
	offsets []uint32 // len == hi-lo+1
	edges   []Vertex
}

// NewShard builds a shard from per-vertex adjacency lists covering [lo, hi).
func NewShard(lo Vertex, adj [][]Vertex) *Shard {
	offsets := make([]uint32, len(adj)+1)
	total := 0
	for i, nbrs := range adj {
		total += len(nbrs)
		offsets[i+1] = uint32(total)
	}
	edges := make([]Vertex, 0, total)
	for _, nbrs := range adj {
		edges = append(edges, nbrs...)
	}
	return &Shard{
		lo:      lo,
		hi:      lo + Vertex(len(adj)),
		offsets: offsets,
		edges:   edges,
	}
}

// Interval returns the shard's half-open vertex interval.
func (s *Shard) Interval() (lo, hi Vertex) { return s.lo, s.hi }

// Contains reports whether v falls inside the shard interval.
func (s *Shard) Contains(v Vertex) bool { return v >= s.lo && v < s.hi }

// NumEdges returns the number of out-edges stored in the shard.
func (s *Shard) NumEdges() int { return len(s.edges) }

// OutNeighbors returns v's out-neighbor list. The slice aliases shard
// storage and must be treated as read-only.
func (s *Shard) OutNeighbors(v Vertex) []Vertex {
	i := v - s.lo
	return s.edges[s.offsets[i]:s.offsets[i+1]]
}

// OutDegree returns v's out-degree.
func (s *Shard) OutDegree(v Vertex) int {
	i := v - s.lo
	return int(s.offsets[i+1] - s.offsets[i])
}

// SizeBytes approximates the resident size of the decoded shard, used for
// cache accounting.
func (s *Shard) SizeBytes() int64 {
	return int64(len(s.offsets))*4 + int64(len(s.edges))*4
}

// ShardName returns the canonical blob name of shard i.
func ShardName(i int) string {
	return fmt.Sprintf("shard-%05d.adj", i)
}

// ManifestName is the blob name of the graph manifest.
const ManifestName = "manifest.json"
