package walk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ramblegraph/ramble/companion"
	"github.com/ramblegraph/ramble/graph"
)

// ErrInvalidConfig is returned when the engine configuration is unusable.
var ErrInvalidConfig = errors.New("walk: invalid engine config")

// Config holds the walk simulation parameters.
type Config struct {
	// FirstSource is the first source vertex of the contiguous source range.
	FirstSource graph.Vertex
	// NumSources is the number of source vertices.
	NumSources uint32
	// WalksPerSource is the number of independent walks started per source.
	WalksPerSource int
	// ResetProbability is the per-step probability of returning to the
	// source. Must be in [0, 1); zero disables random resets, which is
	// useful for exact-count tests.
	ResetProbability float64
	// Workers bounds the goroutines advancing walks within one shard.
	// If <= 0, GOMAXPROCS is used.
	Workers int
	// Seed makes runs reproducible. If zero, a random seed is drawn.
	Seed uint64
}

func (c Config) validate(g graph.Sharded) error {
	if c.NumSources == 0 {
		return fmt.Errorf("%w: no sources", ErrInvalidConfig)
	}
	if c.NumSources > MaxSources {
		return fmt.Errorf("%w: %d sources exceed the walk token capacity", ErrInvalidConfig, c.NumSources)
	}
	if uint64(c.FirstSource)+uint64(c.NumSources) > uint64(g.NumVertices()) {
		return fmt.Errorf("%w: source range [%d, %d) outside vertex range [0, %d)",
			ErrInvalidConfig, c.FirstSource, uint64(c.FirstSource)+uint64(c.NumSources), g.NumVertices())
	}
	if c.WalksPerSource <= 0 {
		return fmt.Errorf("%w: walks per source must be positive", ErrInvalidConfig)
	}
	if c.ResetProbability < 0 || c.ResetProbability >= 1 {
		return fmt.Errorf("%w: reset probability %v outside [0, 1)", ErrInvalidConfig, c.ResetProbability)
	}
	return nil
}

// Stats is a snapshot of engine progress counters.
type Stats struct {
	Passes        int
	Steps         uint64
	TrackedVisits uint64
}

// bucket holds the walks resident in one shard, keyed by current vertex.
// The occupied bitmap drives ascending-order iteration without touching
// empty vertices.
type bucket struct {
	occupied *roaring.Bitmap
	walks    map[graph.Vertex][]Walk
}

func newBucket() *bucket {
	return &bucket{
		occupied: roaring.New(),
		walks:    make(map[graph.Vertex][]Walk),
	}
}

func (b *bucket) add(v graph.Vertex, w Walk) {
	b.occupied.Add(uint32(v))
	b.walks[v] = append(b.walks[v], w)
}

// Engine runs the stage-1 walk simulation.
type Engine struct {
	g    graph.Sharded
	comp companion.Companion
	cfg  Config
	log  *slog.Logger
	seed uint64

	boundaries []graph.Vertex // shard interval starts, plus the final hi
	buckets    []*bucket      // current pass, one per shard
	next       []*bucket      // being filled for the next pass
	started    bool

	stats Stats
}

// NewEngine creates a walk engine over g reporting to comp. A nil logger
// disables logging.
func NewEngine(g graph.Sharded, comp companion.Companion, cfg Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.validate(g); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	boundaries := make([]graph.Vertex, g.NumShards()+1)
	for i := 0; i < g.NumShards(); i++ {
		lo, hi := g.ShardInterval(i)
		boundaries[i] = lo
		boundaries[i+1] = hi
	}

	e := &Engine{
		g:          g,
		comp:       comp,
		cfg:        cfg,
		log:        log,
		seed:       seed,
		boundaries: boundaries,
	}
	e.buckets = e.freshBuckets()
	e.next = e.freshBuckets()
	return e, nil
}

func (e *Engine) freshBuckets() []*bucket {
	bs := make([]*bucket, e.g.NumShards())
	for i := range bs {
		bs[i] = newBucket()
	}
	return bs
}

func (e *Engine) shardOf(v graph.Vertex) int {
	b := e.boundaries
	return sort.Search(len(b)-1, func(i int) bool { return b[i+1] > v })
}

func (e *Engine) sourceOf(w Walk) graph.Vertex {
	return e.cfg.FirstSource + graph.Vertex(w.SourceIndex())
}

// Stats returns a snapshot of progress counters. Only valid between passes
// or after Run returns.
func (e *Engine) Stats() Stats { return e.stats }

// start creates the walks and registers per-source not-tracked sets with
// the companion: a source's own visits and those of its direct
// out-neighbors never count towards its circle of trust.
func (e *Engine) start(ctx context.Context) error {
	first := e.cfg.FirstSource
	last := first + graph.Vertex(e.cfg.NumSources) // exclusive

	for i := 0; i < e.g.NumShards(); i++ {
		lo, hi := e.g.ShardInterval(i)
		if hi <= first || lo >= last {
			continue
		}
		shard, err := e.g.LoadShard(ctx, i)
		if err != nil {
			return fmt.Errorf("walk: load shard %d: %w", i, err)
		}

		from, to := max(lo, first), min(hi, last)
		for v := from; v < to; v++ {
			nbrs := shard.OutNeighbors(v)
			notTracked := make([]graph.Vertex, 0, len(nbrs)+1)
			notTracked = append(notTracked, v)
			notTracked = append(notTracked, nbrs...)
			if err := e.comp.SetNotTracked(v, notTracked); err != nil {
				return fmt.Errorf("walk: companion rejected not-tracked set for %d: %w", v, err)
			}

			w := New(uint32(v - first))
			for j := 0; j < e.cfg.WalksPerSource; j++ {
				e.buckets[i].add(v, w)
			}
		}
	}

	e.started = true
	e.log.InfoContext(ctx, "walks created",
		"sources", e.cfg.NumSources,
		"walks_per_source", e.cfg.WalksPerSource,
		"total", uint64(e.cfg.NumSources)*uint64(e.cfg.WalksPerSource),
	)
	return nil
}

// Run executes the given number of full passes over the graph. A shard
// that cannot be loaded aborts the run; walks cannot meaningfully continue
// with a missing partition.
func (e *Engine) Run(ctx context.Context, passes int) error {
	if passes <= 0 {
		return fmt.Errorf("%w: passes must be positive", ErrInvalidConfig)
	}
	if !e.started {
		if err := e.start(ctx); err != nil {
			return err
		}
	}

	for pass := 0; pass < passes; pass++ {
		startTime := time.Now()
		var passSteps, passVisits uint64

		for s := 0; s < e.g.NumShards(); s++ {
			steps, visits, err := e.processShard(ctx, pass, s)
			if err != nil {
				return err
			}
			passSteps += steps
			passVisits += visits
		}

		// Pass barrier: every walk has stepped once, moves become visible.
		e.buckets, e.next = e.next, e.freshBuckets()

		e.stats.Passes++
		e.stats.Steps += passSteps
		e.stats.TrackedVisits += passVisits
		e.log.InfoContext(ctx, "pass completed",
			"pass", pass,
			"steps", passSteps,
			"tracked_visits", passVisits,
			"duration", time.Since(startTime),
		)
	}
	return nil
}

type workerResult struct {
	moves  []Move
	visits []companion.Visit
}

func (e *Engine) processShard(ctx context.Context, pass, s int) (steps, tracked uint64, err error) {
	b := e.buckets[s]
	if b.occupied.IsEmpty() {
		return 0, 0, nil
	}

	shard, err := e.g.LoadShard(ctx, s)
	if err != nil {
		return 0, 0, fmt.Errorf("walk: load shard %d: %w", s, err)
	}

	verts := b.occupied.ToArray() // ascending vertex order
	chunks := chunkUint32(verts, e.cfg.Workers)
	results := make([]workerResult, len(chunks))

	// Per-vertex advances within a pass are independent; workers only read
	// the shard and the current bucket, emitting moves and visits into
	// private buffers.
	var eg errgroup.Group
	for ci, chunk := range chunks {
		rng := rand.New(rand.NewPCG(e.seed, mixSeed(pass, s, ci)))
		eg.Go(func() error {
			var res workerResult
			for _, v32 := range chunk {
				v := graph.Vertex(v32)
				res.moves, res.visits = Advance(
					b.walks[v], v, shard.OutNeighbors(v),
					e.sourceOf, e.cfg.ResetProbability, rng,
					res.moves, res.visits,
				)
			}
			results[ci] = res
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, 0, err
	}

	// Scatter is single-threaded: next-pass buckets need no locks.
	for _, res := range results {
		if len(res.visits) > 0 {
			if err := e.comp.RecordVisits(res.visits); err != nil {
				return 0, 0, fmt.Errorf("walk: companion ingestion failed: %w", err)
			}
		}
		for _, m := range res.moves {
			e.next[e.shardOf(m.To)].add(m.To, m.Walk)
		}
		steps += uint64(len(res.moves))
		tracked += uint64(len(res.visits))
	}
	return steps, tracked, nil
}

// chunkUint32 splits vs into at most n contiguous chunks of similar size.
func chunkUint32(vs []uint32, n int) [][]uint32 {
	if n > len(vs) {
		n = len(vs)
	}
	chunks := make([][]uint32, 0, n)
	for i := 0; i < n; i++ {
		lo := len(vs) * i / n
		hi := len(vs) * (i + 1) / n
		if lo < hi {
			chunks = append(chunks, vs[lo:hi])
		}
	}
	return chunks
}

func mixSeed(pass, shard, chunk int) uint64 {
	x := uint64(pass)*0x9E3779B97F4A7C15 ^ uint64(shard)<<24 ^ uint64(chunk)
	x ^= x >> 33
	x *= 0xFF51AFD7ED558CCD
	x ^= x >> 33
	return x
}
