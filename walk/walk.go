// Package walk simulates many short personalized random walks over a
// sharded graph.
//
// Every source vertex owns a fixed number of walks. A processing pass loads
// each shard once and advances every walk resident in it by exactly one
// edge; moves across shard boundaries become visible at the next pass, so a
// pass boundary is a synchronization barrier. Tracked visit events stream to
// a companion.Companion, which later answers circle-of-trust queries.
package walk

// Walk is a compact token identifying one live random walk. The low 31 bits
// hold the walk's source index (offset from the first source vertex); the
// top bit records whether the walk has left its source since its last
// reset. A walk's current position is implied by the engine bucket holding
// it, so the token itself stays a single word for billions of walks.
type Walk uint32

const leftSourceBit Walk = 1 << 31

// MaxSources is the largest representable number of source vertices.
const MaxSources = uint32(leftSourceBit)

// New creates a fresh walk for the source with the given index. A fresh
// walk sits at its source and has not left it.
func New(sourceIdx uint32) Walk {
	return Walk(sourceIdx)
}

// SourceIndex returns the walk's source index.
func (w Walk) SourceIndex() uint32 {
	return uint32(w &^ leftSourceBit)
}

// HasLeftSource reports whether the walk has made at least one forward hop
// since it last sat at its source.
func (w Walk) HasLeftSource() bool {
	return w&leftSourceBit != 0
}

// Departed returns the walk marked as having left its source.
func (w Walk) Departed() Walk {
	return w | leftSourceBit
}

// Reset returns the walk as it looks after returning to its source.
func (w Walk) Reset() Walk {
	return w &^ leftSourceBit
}
