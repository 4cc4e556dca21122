package ramble

import (
	"sync/atomic"
	"time"

	"github.com/ramblegraph/ramble/walk"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordWalkStage is called once after the walk simulation stage.
	// stats is the engine's final counter snapshot, err is nil if successful.
	RecordWalkStage(stats walk.Stats, duration time.Duration, err error)

	// RecordEgo is called after each ego vertex's ranking.
	// duration is the time taken, err is nil if successful.
	RecordEgo(duration time.Duration, err error)

	// RecordBatch is called once after the ranking stage.
	// egos is the number attempted, failed is the number without
	// recommendations, duration is the total stage time.
	RecordBatch(egos, failed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordWalkStage(walk.Stats, time.Duration, error) {}
func (NoopMetricsCollector) RecordEgo(time.Duration, error)                   {}
func (NoopMetricsCollector) RecordBatch(int, int, time.Duration)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	WalkStageCount  atomic.Int64
	WalkStageErrors atomic.Int64
	WalkSteps       atomic.Int64
	TrackedVisits   atomic.Int64
	EgoCount        atomic.Int64
	EgoErrors       atomic.Int64
	EgoTotalNanos   atomic.Int64
	BatchCount      atomic.Int64
	BatchEgos       atomic.Int64
	BatchFailed     atomic.Int64
}

// RecordWalkStage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWalkStage(stats walk.Stats, duration time.Duration, err error) {
	b.WalkStageCount.Add(1)
	b.WalkSteps.Add(int64(stats.Steps))
	b.TrackedVisits.Add(int64(stats.TrackedVisits))
	if err != nil {
		b.WalkStageErrors.Add(1)
	}
}

// RecordEgo implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEgo(duration time.Duration, err error) {
	b.EgoCount.Add(1)
	b.EgoTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EgoErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(egos, failed int, duration time.Duration) {
	b.BatchCount.Add(1)
	b.BatchEgos.Add(int64(egos))
	b.BatchFailed.Add(int64(failed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		WalkStageCount:  b.WalkStageCount.Load(),
		WalkStageErrors: b.WalkStageErrors.Load(),
		WalkSteps:       b.WalkSteps.Load(),
		TrackedVisits:   b.TrackedVisits.Load(),
		EgoCount:        b.EgoCount.Load(),
		EgoErrors:       b.EgoErrors.Load(),
		EgoAvgNanos:     b.getAvgEgoNanos(),
		BatchCount:      b.BatchCount.Load(),
		BatchEgos:       b.BatchEgos.Load(),
		BatchFailed:     b.BatchFailed.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgEgoNanos() int64 {
	count := b.EgoCount.Load()
	if count == 0 {
		return 0
	}
	return b.EgoTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	WalkStageCount  int64
	WalkStageErrors int64
	WalkSteps       int64
	TrackedVisits   int64
	EgoCount        int64
	EgoErrors       int64
	EgoAvgNanos     int64
	BatchCount      int64
	BatchEgos       int64
	BatchFailed     int64
}
