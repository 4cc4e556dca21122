package ramble

import (
	"github.com/ramblegraph/ramble/graph"
	"github.com/ramblegraph/ramble/salsa"
	"github.com/ramblegraph/ramble/walk"
)

// Defaults applied by New for fields left at zero.
const (
	// DefaultCircleSize is the circle-of-trust cap per ego vertex.
	DefaultCircleSize = 300
	// DefaultTopK is the recommendation list length per ego vertex.
	DefaultTopK = 10
	// DefaultSalsaIterations is the number of ranking rounds.
	DefaultSalsaIterations = salsa.DefaultIterations
)

// DefaultResetProbability is the conventional per-step walk reset
// probability. It is not applied implicitly: a zero ResetProbability means
// walks never reset at random.
const DefaultResetProbability = walk.DefaultResetProbability

// Config is the batch configuration of one recommendation run.
type Config struct {
	// FirstSource is the first ego vertex of the contiguous source range.
	FirstSource graph.Vertex
	// NumSources is the number of ego vertices.
	NumSources uint32
	// WalksPerSource is the number of random walks started per ego.
	WalksPerSource int
	// Passes is the number of full walk passes over the graph.
	Passes int
	// ResetProbability is the per-step walk reset probability, in [0, 1).
	ResetProbability float64
	// CircleSize caps the circle of trust per ego. Zero means DefaultCircleSize.
	CircleSize int
	// SalsaIterations is the number of ranking rounds. Zero means
	// DefaultSalsaIterations.
	SalsaIterations int
	// TopK is the recommendation list length. Zero means DefaultTopK.
	TopK int
}

func (c Config) withDefaults() Config {
	if c.CircleSize == 0 {
		c.CircleSize = DefaultCircleSize
	}
	if c.SalsaIterations == 0 {
		c.SalsaIterations = DefaultSalsaIterations
	}
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	return c
}

// Validate checks the configuration against the target graph.
func (c Config) Validate(g graph.Sharded) error {
	if c.NumSources == 0 {
		return &ConfigError{Field: "NumSources", Reason: "must be positive"}
	}
	if uint64(c.FirstSource)+uint64(c.NumSources) > uint64(g.NumVertices()) {
		return &ConfigError{Field: "FirstSource", Reason: "source range exceeds the graph's vertex range"}
	}
	if c.WalksPerSource <= 0 {
		return &ConfigError{Field: "WalksPerSource", Reason: "must be positive"}
	}
	if c.Passes <= 0 {
		return &ConfigError{Field: "Passes", Reason: "must be positive"}
	}
	if c.ResetProbability < 0 || c.ResetProbability >= 1 {
		return &ConfigError{Field: "ResetProbability", Reason: "must be in [0, 1)"}
	}
	if c.CircleSize < 0 {
		return &ConfigError{Field: "CircleSize", Reason: "must not be negative"}
	}
	if c.SalsaIterations < 0 {
		return &ConfigError{Field: "SalsaIterations", Reason: "must not be negative"}
	}
	if c.TopK < 0 {
		return &ConfigError{Field: "TopK", Reason: "must not be negative"}
	}
	return nil
}
