// Package salsa ranks recommendation candidates for one ego vertex by
// mutual reinforcement over a small bipartite graph.
//
// The hub side is the ego's circle of trust; the authority side is the union
// of the hubs' out-neighbors. Scores flow back and forth a fixed number of
// rounds with per-side renormalization, so only the relative ranking of the
// final authority scores carries meaning.
package salsa

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ramblegraph/ramble/graph"
)

// DefaultIterations is the number of score-propagation rounds. The induced
// graph is small (a few hundred hubs), so a fixed small count converges well
// enough and keeps the runtime predictable.
const DefaultIterations = 4

// ErrInvalidIterations is returned for a non-positive iteration count.
var ErrInvalidIterations = errors.New("salsa: iterations must be positive")

// Scored is a vertex with its ranking score.
type Scored struct {
	Vertex graph.Vertex
	Score  float64
}

// Result holds the converged hub and authority scores of one ranking run.
type Result struct {
	hubs        []graph.Vertex
	hubScores   []float64
	authorities []graph.Vertex
	authScores  []float64
}

// Rank builds the bipartite graph induced by the circle of trust and runs
// the given number of mutual-reinforcement rounds. Out-neighbor queries go
// through g; a failed query aborts the ranking. An empty circle yields an
// empty result.
func Rank(ctx context.Context, g graph.Graph, circle []graph.Vertex, iterations int) (*Result, error) {
	if iterations <= 0 {
		return nil, ErrInvalidIterations
	}
	if len(circle) == 0 {
		return &Result{}, nil
	}

	hubs := dedupe(circle)

	// Edges as authority indexes per hub. Every out-neighbor of a hub is an
	// authority by construction, so a hub's restricted out-degree is just
	// len(hubEdges[i]).
	authIdx := make(map[graph.Vertex]int)
	var authorities []graph.Vertex
	hubEdges := make([][]int, len(hubs))
	for i, h := range hubs {
		nbrs, err := g.OutNeighbors(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("salsa: out-neighbors of hub %d: %w", h, err)
		}
		edges := make([]int, len(nbrs))
		for j, a := range nbrs {
			idx, ok := authIdx[a]
			if !ok {
				idx = len(authorities)
				authIdx[a] = idx
				authorities = append(authorities, a)
			}
			edges[j] = idx
		}
		hubEdges[i] = edges
	}

	authInDeg := make([]float64, len(authorities))
	for _, edges := range hubEdges {
		for _, j := range edges {
			authInDeg[j]++
		}
	}

	hubScores := make([]float64, len(hubs))
	for i := range hubScores {
		hubScores[i] = 1 / float64(len(hubs))
	}
	authScores := make([]float64, len(authorities))

	for it := 0; it < iterations; it++ {
		// Authority round: each hub spreads its mass evenly over its
		// out-edges. A hub with no out-edges contributes nothing.
		clear(authScores)
		for i, edges := range hubEdges {
			if len(edges) == 0 {
				continue
			}
			share := hubScores[i] / float64(len(edges))
			for _, j := range edges {
				authScores[j] += share
			}
		}
		normalize(authScores)

		// Hub round: each authority spreads its mass back over the hubs
		// pointing at it.
		clear(hubScores)
		for i, edges := range hubEdges {
			for _, j := range edges {
				hubScores[i] += authScores[j] / authInDeg[j]
			}
		}
		normalize(hubScores)
	}

	return &Result{
		hubs:        hubs,
		hubScores:   hubScores,
		authorities: authorities,
		authScores:  authScores,
	}, nil
}

func dedupe(vs []graph.Vertex) []graph.Vertex {
	seen := make(map[graph.Vertex]struct{}, len(vs))
	out := make([]graph.Vertex, 0, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalize(xs []float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range xs {
		xs[i] /= sum
	}
}

// Hubs returns the hub-side scores in circle order.
func (r *Result) Hubs() []Scored {
	return scored(r.hubs, r.hubScores)
}

// Authorities returns the authority-side scores in discovery order.
func (r *Result) Authorities() []Scored {
	return scored(r.authorities, r.authScores)
}

func scored(vs []graph.Vertex, ss []float64) []Scored {
	out := make([]Scored, len(vs))
	for i, v := range vs {
		out[i] = Scored{Vertex: v, Score: ss[i]}
	}
	return out
}

// TopAuthorities returns the k highest-scoring authorities not present in
// exclude, sorted descending by score with ties broken by ascending vertex
// id. A nil exclude set excludes nothing.
func (r *Result) TopAuthorities(k int, exclude *roaring.Bitmap) []Scored {
	if k <= 0 {
		return nil
	}

	top := make([]Scored, 0, len(r.authorities))
	for i, v := range r.authorities {
		if exclude != nil && exclude.Contains(uint32(v)) {
			continue
		}
		top = append(top, Scored{Vertex: v, Score: r.authScores[i]})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score != top[j].Score {
			return top[i].Score > top[j].Score
		}
		return top[i].Vertex < top[j].Vertex
	})
	if len(top) > k {
		top = top[:k]
	}
	return top
}
