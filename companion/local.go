package companion

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ramblegraph/ramble/graph"
)

// Approximate resident bytes per histogram entry (map bucket share plus
// key and count). Only used for budget accounting, not allocation.
const bytesPerEntry = 24

// LocalOptions configure the in-process companion.
type LocalOptions struct {
	// MemoryBudgetBytes caps the estimated size of all histograms. When the
	// estimate exceeds the budget, low-frequency entries are pruned. If 0,
	// histograms are exact and unbounded.
	MemoryBudgetBytes int64
}

// Local is the in-process Companion. Under memory pressure it sheds
// low-count entries per source instead of failing: rare vertices lose
// recall, but a top-K query stays answerable for every source seen.
type Local struct {
	mu         sync.RWMutex
	opts       LocalOptions
	hists      map[graph.Vertex]map[graph.Vertex]uint32
	notTracked map[graph.Vertex]*roaring.Bitmap
	entries    int64
	pruneMin   uint32
}

// NewLocal creates an in-process companion.
func NewLocal(opts LocalOptions) *Local {
	return &Local{
		opts:       opts,
		hists:      make(map[graph.Vertex]map[graph.Vertex]uint32),
		notTracked: make(map[graph.Vertex]*roaring.Bitmap),
		pruneMin:   2,
	}
}

// SetNotTracked registers the never-counted vertex set for source.
func (c *Local) SetNotTracked(source graph.Vertex, vertices []graph.Vertex) error {
	bm := roaring.New()
	for _, v := range vertices {
		bm.Add(uint32(v))
	}

	c.mu.Lock()
	c.notTracked[source] = bm
	c.mu.Unlock()
	return nil
}

// RecordVisits ingests a batch of visit events.
func (c *Local) RecordVisits(visits []Visit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, v := range visits {
		if nt, ok := c.notTracked[v.Source]; ok && nt.Contains(uint32(v.Visited)) {
			continue
		}
		h, ok := c.hists[v.Source]
		if !ok {
			h = make(map[graph.Vertex]uint32)
			c.hists[v.Source] = h
		}
		if _, seen := h[v.Visited]; !seen {
			c.entries++
		}
		h[v.Visited]++
	}

	if c.opts.MemoryBudgetBytes > 0 && c.entries*bytesPerEntry > c.opts.MemoryBudgetBytes {
		c.prune()
	}
	return nil
}

// prune drops entries with count below the current threshold, raising the
// threshold when a sweep frees too little. Callers hold the write lock.
func (c *Local) prune() {
	before := c.entries
	for _, h := range c.hists {
		for v, n := range h {
			if n < c.pruneMin {
				delete(h, v)
				c.entries--
			}
		}
	}
	// Less than a quarter freed: rare entries alone no longer explain the
	// pressure, escalate for the next sweep.
	if c.entries*4 > before*3 {
		c.pruneMin *= 2
	}
}

// GetTop returns the top-k visited vertices for source.
func (c *Local) GetTop(source graph.Vertex, k int) ([]VertexCount, error) {
	if k <= 0 {
		return nil, nil
	}

	c.mu.RLock()
	h := c.hists[source]
	top := make([]VertexCount, 0, len(h))
	for v, n := range h {
		top = append(top, VertexCount{Vertex: v, Count: n})
	}
	c.mu.RUnlock()

	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Vertex < top[j].Vertex
	})
	if len(top) > k {
		top = top[:k]
	}
	return top, nil
}

// VisitCount returns the total tracked visits currently retained for
// source. Pruned entries are not included.
func (c *Local) VisitCount(source graph.Vertex) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total uint64
	for _, n := range c.hists[source] {
		total += uint64(n)
	}
	return total
}
