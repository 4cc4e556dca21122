// Package ramble computes personalized "who to follow" style recommendations
// over very large directed graphs.
//
// Ranking runs in two stages. Stage one simulates many short random walks per
// ego vertex over a sharded graph, accumulating per-ego visit histograms (the
// "circle of trust"). Stage two ranks candidates per ego with SALSA, a
// bipartite hub/authority mutual-reinforcement pass over the subgraph induced
// by the circle of trust.
//
// # Quick Start
//
//	g := graph.NewMemory(numVertices, numShards)
//	// ... g.AddEdge(...) ...
//
//	p, err := ramble.New(g, ramble.Config{
//	    NumSources:       1000,
//	    WalksPerSource:   1000,
//	    Passes:           6,
//	    ResetProbability: ramble.DefaultResetProbability,
//	}, ramble.WithLogLevel(slog.LevelInfo))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	recs, err := p.Run(ctx)
//
// Graphs too large for memory come from graph.Store, which reads
// block-compressed shards through a blobstore backend (local disk, MinIO,
// or S3) with a byte-budget shard cache.
package ramble

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ramblegraph/ramble/companion"
	"github.com/ramblegraph/ramble/graph"
	"github.com/ramblegraph/ramble/salsa"
	"github.com/ramblegraph/ramble/walk"
)

// progressEvery is the ranking-stage progress logging cadence.
const progressEvery = 64

// Recommendations is the ordered recommendation list of one ego vertex.
// An ego that failed or has an empty circle of trust has an empty Ranked.
type Recommendations struct {
	Ego    graph.Vertex
	Ranked []salsa.Scored
}

// Pipeline orchestrates the two recommendation stages over one graph.
type Pipeline struct {
	g       graph.Sharded
	cfg     Config
	comp    companion.Companion
	logger  *Logger
	metrics MetricsCollector
	workers int
	seed    uint64
}

// New creates a recommendation pipeline for the given graph and batch
// configuration.
func New(g graph.Sharded, cfg Config, optFns ...Option) (*Pipeline, error) {
	o := applyOptions(optFns)

	cfg = cfg.withDefaults()
	if err := cfg.Validate(g); err != nil {
		return nil, err
	}

	comp := o.companion
	if comp == nil {
		comp = companion.NewLocal(companion.LocalOptions{
			MemoryBudgetBytes: o.companionBudget,
		})
	}

	workers := o.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Pipeline{
		g:       g,
		cfg:     cfg,
		comp:    comp,
		logger:  o.logger.WithSourceRange(cfg.FirstSource, cfg.NumSources),
		metrics: o.metricsCollector,
		workers: workers,
		seed:    o.seed,
	}, nil
}

// Companion returns the visit aggregator the pipeline reports to. Its
// histograms are populated once Run's walk stage has completed.
func (p *Pipeline) Companion() companion.Companion { return p.comp }

// Run executes both stages and returns one recommendation list per ego
// vertex, in ascending ego order.
//
// A graph failure in either stage aborts the whole batch. An aggregator
// failure is fatal only to its ego: the remaining lists are still returned,
// together with a *BatchError naming the failed egos.
func (p *Pipeline) Run(ctx context.Context) ([]Recommendations, error) {
	if err := p.runWalks(ctx); err != nil {
		return nil, err
	}
	return p.rank(ctx)
}

func (p *Pipeline) runWalks(ctx context.Context) error {
	engine, err := walk.NewEngine(p.g, p.comp, walk.Config{
		FirstSource:      p.cfg.FirstSource,
		NumSources:       p.cfg.NumSources,
		WalksPerSource:   p.cfg.WalksPerSource,
		ResetProbability: p.cfg.ResetProbability,
		Workers:          p.workers,
		Seed:             p.seed,
	}, p.logger.Logger)
	if err != nil {
		return err
	}

	start := time.Now()
	err = engine.Run(ctx, p.cfg.Passes)
	duration := time.Since(start)

	p.metrics.RecordWalkStage(engine.Stats(), duration, err)
	p.logger.LogWalkStage(ctx, engine.Stats(), duration, err)
	if err != nil {
		return &GraphError{Op: "walk simulation", cause: err}
	}
	return nil
}

func (p *Pipeline) rank(ctx context.Context) ([]Recommendations, error) {
	total := int64(p.cfg.NumSources)
	results := make([]Recommendations, p.cfg.NumSources)
	failures := make([]*AggregatorError, p.cfg.NumSources)

	start := time.Now()
	var done atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for i := uint32(0); i < p.cfg.NumSources; i++ {
		ego := p.cfg.FirstSource + graph.Vertex(i)
		eg.Go(func() error {
			egoStart := time.Now()
			recs, err := p.recommend(ctx, ego)
			p.metrics.RecordEgo(time.Since(egoStart), err)
			p.logger.LogEgo(ctx, ego, len(recs.Ranked), err)

			if err != nil {
				var ae *AggregatorError
				if errors.As(err, &ae) {
					// Fatal to this ego only; never a silent skip.
					failures[i] = ae
					results[i] = Recommendations{Ego: ego}
					return nil
				}
				return err
			}
			results[i] = recs

			if n := done.Add(1); n%progressEvery == 0 {
				p.logger.LogProgress(ctx, n, total, time.Since(start))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var batchErr *BatchError
	for _, f := range failures {
		if f == nil {
			continue
		}
		if batchErr == nil {
			batchErr = &BatchError{}
		}
		batchErr.Failures = append(batchErr.Failures, f)
	}

	failed := 0
	if batchErr != nil {
		failed = len(batchErr.Failures)
	}
	p.metrics.RecordBatch(int(total), failed, time.Since(start))
	p.logger.InfoContext(ctx, "ranking stage completed",
		"egos", total,
		"failed", failed,
		"duration", time.Since(start),
	)
	if batchErr != nil {
		return results, batchErr
	}
	return results, nil
}

// recommend produces the recommendation list for one ego vertex: circle of
// trust from the aggregator, SALSA over the induced bipartite graph, then
// the ego itself and its direct out-neighbors filtered from the top-K.
func (p *Pipeline) recommend(ctx context.Context, ego graph.Vertex) (Recommendations, error) {
	top, err := p.comp.GetTop(ego, p.cfg.CircleSize)
	if err != nil {
		return Recommendations{}, &AggregatorError{Ego: ego, cause: err}
	}
	if len(top) == 0 {
		// Degenerate but valid: nothing was visited, nothing to recommend.
		return Recommendations{Ego: ego}, nil
	}

	circle := make([]graph.Vertex, len(top))
	for i, vc := range top {
		circle[i] = vc.Vertex
	}

	nbrs, err := p.g.OutNeighbors(ctx, ego)
	if err != nil {
		return Recommendations{}, &GraphError{Op: fmt.Sprintf("out-neighbors of ego %d", ego), cause: err}
	}
	exclude := roaring.New()
	exclude.Add(uint32(ego))
	for _, n := range nbrs {
		exclude.Add(uint32(n))
	}

	res, err := salsa.Rank(ctx, p.g, circle, p.cfg.SalsaIterations)
	if err != nil {
		return Recommendations{}, &GraphError{Op: fmt.Sprintf("ranking ego %d", ego), cause: err}
	}

	return Recommendations{
		Ego:    ego,
		Ranked: res.TopAuthorities(p.cfg.TopK, exclude),
	}, nil
}
