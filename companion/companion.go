// Package companion accumulates per-source visit histograms for the walk
// engine and answers top-K "circle of trust" queries.
//
// The walk engine and the ranking stage only depend on the Companion
// interface, so the same run works against the in-process implementation or
// a client for a remote aggregation service.
package companion

import (
	"github.com/ramblegraph/ramble/graph"
)

// Visit is one tracked walk event: a walk owned by Source stepped onto
// Visited.
type Visit struct {
	Source  graph.Vertex
	Visited graph.Vertex
}

// VertexCount pairs a vertex with its visit count.
type VertexCount struct {
	Vertex graph.Vertex
	Count  uint32
}

// Companion is the visit-aggregation contract.
//
// Ingestion is fire-and-forget from the engine's perspective, but
// RecordVisits must have returned for every stage-1 event before GetTop is
// trusted for the corresponding source.
type Companion interface {
	// SetNotTracked registers the vertices whose visits are never counted
	// for source (the source itself and its direct out-neighbors).
	SetNotTracked(source graph.Vertex, vertices []graph.Vertex) error

	// RecordVisits ingests a batch of tracked visit events.
	RecordVisits(visits []Visit) error

	// GetTop returns up to k (vertex, count) pairs for source, sorted by
	// count descending, ties broken by ascending vertex id. A source with
	// no tracked visits yields an empty slice, not an error.
	GetTop(source graph.Vertex, k int) ([]VertexCount, error)
}
