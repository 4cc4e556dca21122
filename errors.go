package ramble

import (
	"fmt"

	"github.com/ramblegraph/ramble/graph"
)

// ConfigError indicates an unusable batch configuration. It is returned
// before any stage starts running.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// GraphError indicates a failed graph access. Graph failures are fatal to
// the whole batch: both stages depend on every partition being readable.
//
// The original underlying error can be accessed via errors.Unwrap.
type GraphError struct {
	Op    string
	cause error
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph access failed during %s: %v", e.Op, e.cause)
}

func (e *GraphError) Unwrap() error { return e.cause }

// AggregatorError indicates that the visit aggregator failed for one ego
// vertex. It is fatal to that ego's recommendations only; no partial or
// degraded list is produced for it.
//
// The original underlying error can be accessed via errors.Unwrap.
type AggregatorError struct {
	Ego   graph.Vertex
	cause error
}

func (e *AggregatorError) Error() string {
	return fmt.Sprintf("aggregator query failed for ego %d: %v", e.Ego, e.cause)
}

func (e *AggregatorError) Unwrap() error { return e.cause }

// BatchError collects the per-ego failures of one ranking stage. The batch
// still produces recommendations for every other ego; callers inspect
// Failures to learn which egos have none and why.
type BatchError struct {
	Failures []*AggregatorError
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("recommendations failed for %d egos", len(e.Failures))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
