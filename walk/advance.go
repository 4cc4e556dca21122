package walk

import (
	"math/rand/v2"

	"github.com/ramblegraph/ramble/companion"
	"github.com/ramblegraph/ramble/graph"
)

// Move is a walk's position for the next pass.
type Move struct {
	Walk Walk
	To   graph.Vertex
}

// DefaultResetProbability is the per-step probability of a walk returning
// to its source instead of following an out-edge.
const DefaultResetProbability = 0.15

// Advance advances every walk currently at vertex `at` by one step and
// appends the outcomes to moves and visits, returning the extended slices.
//
// Step semantics for a vertex with out-degree d:
//   - d == 0: the walk resets to its source (not a tracked visit).
//   - with probability resetProb: the walk resets to its source, not tracked.
//   - otherwise: the walk moves to an out-neighbor chosen uniformly at
//     random. The visit is tracked only if the walk had already left its
//     source before this hop; first hops land on the source's direct
//     out-neighbors, which are excluded from recommendation anyway.
//
// Advance is stateless: position comes in via `at`, randomness via rng, and
// the caller owns delivery of moves and visits. This keeps the step rule
// testable without an engine or a live graph behind it.
func Advance(
	walks []Walk,
	at graph.Vertex,
	neighbors []graph.Vertex,
	sourceOf func(Walk) graph.Vertex,
	resetProb float64,
	rng *rand.Rand,
	moves []Move,
	visits []companion.Visit,
) ([]Move, []companion.Visit) {
	if len(neighbors) == 0 {
		// Nowhere to go from here: everyone walks home.
		for _, w := range walks {
			moves = append(moves, Move{Walk: w.Reset(), To: sourceOf(w)})
		}
		return moves, visits
	}

	for _, w := range walks {
		if rng.Float64() < resetProb {
			moves = append(moves, Move{Walk: w.Reset(), To: sourceOf(w)})
			continue
		}

		next := neighbors[rng.IntN(len(neighbors))]
		if w.HasLeftSource() {
			visits = append(visits, companion.Visit{Source: sourceOf(w), Visited: next})
		}
		moves = append(moves, Move{Walk: w.Departed(), To: next})
	}
	return moves, visits
}
