package ramble

import (
	"log/slog"

	"github.com/ramblegraph/ramble/companion"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	companion        companion.Companion
	companionBudget  int64
	workers          int
	seed             uint64
}

// Option configures Pipeline constructor behavior.
type Option func(*options)

// WithLogger configures structured logging for both stages.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCompanion configures the visit aggregator. Use this to point the
// pipeline at a remote companion; by default an in-process one is created.
func WithCompanion(c companion.Companion) Option {
	return func(o *options) {
		o.companion = c
	}
}

// WithCompanionMemoryBudget caps the estimated memory of the default
// in-process companion's histograms. Ignored when WithCompanion is set.
// Zero means unbounded exact histograms.
func WithCompanionMemoryBudget(bytes int64) Option {
	return func(o *options) {
		o.companionBudget = bytes
	}
}

// WithWorkers bounds the concurrency of both stages: walk advancement
// goroutines within a shard and parallel ego rankings.
// If <= 0, GOMAXPROCS is used.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithSeed makes walk simulation reproducible. If zero, a random seed
// is drawn.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
