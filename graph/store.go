package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ramblegraph/ramble/blobstore"
	"github.com/ramblegraph/ramble/codec"
	"github.com/ramblegraph/ramble/internal/cache"
	"github.com/ramblegraph/ramble/internal/resource"
)

// Manifest describes a sharded graph stored in a blob store.
type Manifest struct {
	Name        string   `json:"name"`
	NumVertices uint32   `json:"num_vertices"`
	NumEdges    uint64   `json:"num_edges"`
	Codec       string   `json:"codec"`
	Boundaries  []uint32 `json:"boundaries"` // len numShards+1, ascending
}

func (m *Manifest) validate() error {
	if len(m.Boundaries) < 2 {
		return fmt.Errorf("%w: need at least one shard", ErrBadManifest)
	}
	if m.Boundaries[0] != 0 || m.Boundaries[len(m.Boundaries)-1] != m.NumVertices {
		return fmt.Errorf("%w: boundaries do not cover vertex range", ErrBadManifest)
	}
	for i := 1; i < len(m.Boundaries); i++ {
		if m.Boundaries[i] < m.Boundaries[i-1] {
			return fmt.Errorf("%w: boundaries not ascending", ErrBadManifest)
		}
	}
	if _, ok := codec.ByName(m.Codec); !ok {
		return fmt.Errorf("%w: unknown codec %q", ErrBadManifest, m.Codec)
	}
	return nil
}

// StoreOptions configure a blob-backed graph.
type StoreOptions struct {
	// CacheBytes bounds the decoded-shard LRU. If 0, defaults to 256 MiB.
	CacheBytes int64
	// MaxConcurrentLoads bounds concurrent shard fetches. If 0, defaults to 4.
	MaxConcurrentLoads int64
	// IOLimitBytesPerSec throttles shard fetches. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Store is a Sharded graph backed by a blob store. Decoded shards are kept
// in a byte-bounded LRU shared by all readers, so concurrent stage-2 rankers
// hit memory for recently touched partitions.
type Store struct {
	blobs blobstore.BlobStore
	man   Manifest
	ctype codec.Type
	rc    *resource.Controller
	cache *cache.LRU[int, *Shard]
}

// Open reads the manifest from the blob store and prepares shard access.
func Open(ctx context.Context, blobs blobstore.BlobStore, opts StoreOptions) (*Store, error) {
	b, err := blobs.Open(ctx, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	defer b.Close()

	raw, err := blobstore.ReadAll(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}

	var man Manifest
	if err := json.Unmarshal(raw, &man); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if err := man.validate(); err != nil {
		return nil, err
	}
	ctype, _ := codec.ByName(man.Codec)

	cacheBytes := opts.CacheBytes
	if cacheBytes <= 0 {
		cacheBytes = 256 << 20
	}
	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   cacheBytes,
		MaxConcurrentLoads: opts.MaxConcurrentLoads,
		IOLimitBytesPerSec: opts.IOLimitBytesPerSec,
	})

	return &Store{
		blobs: blobs,
		man:   man,
		ctype: ctype,
		rc:    rc,
		cache: cache.NewLRU[int, *Shard](cacheBytes, (*Shard).SizeBytes, rc),
	}, nil
}

// Manifest returns a copy of the manifest.
func (g *Store) Manifest() Manifest { return g.man }

// NumVertices returns the size of the vertex id space.
func (g *Store) NumVertices() uint32 { return g.man.NumVertices }

// NumShards returns the number of partitions.
func (g *Store) NumShards() int { return len(g.man.Boundaries) - 1 }

// ShardInterval returns the half-open interval of shard i.
func (g *Store) ShardInterval(i int) (lo, hi Vertex) {
	return Vertex(g.man.Boundaries[i]), Vertex(g.man.Boundaries[i+1])
}

// CacheStats reports decoded-shard cache hits and misses.
func (g *Store) CacheStats() (hits, misses int64) { return g.cache.Stats() }

func (g *Store) shardOf(v Vertex) int {
	b := g.man.Boundaries
	// First boundary strictly greater than v, minus one.
	return sort.Search(len(b)-1, func(i int) bool { return b[i+1] > uint32(v) })
}

// LoadShard returns the decoded shard i, from cache when possible.
func (g *Store) LoadShard(ctx context.Context, i int) (*Shard, error) {
	if i < 0 || i >= g.NumShards() {
		return nil, ErrShardOutOfRange
	}
	if s, ok := g.cache.Get(i); ok {
		return s, nil
	}

	if err := g.rc.AcquireLoadSlot(ctx); err != nil {
		return nil, err
	}
	defer g.rc.ReleaseLoadSlot()

	// Another loader may have won the race while we waited for the slot.
	if s, ok := g.cache.Get(i); ok {
		return s, nil
	}

	b, err := g.blobs.Open(ctx, ShardName(i))
	if err != nil {
		return nil, fmt.Errorf("graph: open shard %d: %w", i, err)
	}
	defer b.Close()

	if err := g.rc.WaitIO(ctx, int(b.Size())); err != nil {
		return nil, err
	}

	raw, err := blobstore.ReadAll(b)
	if err != nil {
		return nil, fmt.Errorf("graph: read shard %d: %w", i, err)
	}

	s, err := DecodeShard(raw)
	if err != nil {
		return nil, fmt.Errorf("shard %d: %w", i, err)
	}
	lo, hi := g.ShardInterval(i)
	if slo, shi := s.Interval(); slo != lo || shi != hi {
		return nil, fmt.Errorf("%w: shard %d interval [%d,%d) does not match manifest [%d,%d)",
			ErrCorruptShard, i, slo, shi, lo, hi)
	}

	g.cache.Set(i, s)
	return s, nil
}

// OutNeighbors returns v's out-neighbor list, loading its shard on demand.
func (g *Store) OutNeighbors(ctx context.Context, v Vertex) ([]Vertex, error) {
	if uint32(v) >= g.man.NumVertices {
		return nil, ErrVertexOutOfRange
	}
	s, err := g.LoadShard(ctx, g.shardOf(v))
	if err != nil {
		return nil, err
	}
	return s.OutNeighbors(v), nil
}

// OutDegree returns v's out-degree.
func (g *Store) OutDegree(ctx context.Context, v Vertex) (int, error) {
	if uint32(v) >= g.man.NumVertices {
		return 0, ErrVertexOutOfRange
	}
	s, err := g.LoadShard(ctx, g.shardOf(v))
	if err != nil {
		return 0, err
	}
	return s.OutDegree(v), nil
}

// WriteShards encodes g into the blob store: one blob per shard plus the
// manifest. Existing blobs with the same names are replaced.
func WriteShards(ctx context.Context, blobs blobstore.BlobStore, g *Memory, name string, t codec.Type) error {
	var numEdges uint64
	for i := 0; i < g.NumShards(); i++ {
		s, err := g.LoadShard(ctx, i)
		if err != nil {
			return err
		}
		numEdges += uint64(s.NumEdges())

		data, err := EncodeShard(s, t)
		if err != nil {
			return fmt.Errorf("graph: encode shard %d: %w", i, err)
		}
		if err := blobs.Put(ctx, ShardName(i), data); err != nil {
			return fmt.Errorf("graph: write shard %d: %w", i, err)
		}
	}

	boundaries := make([]uint32, g.NumShards()+1)
	for i := 0; i < g.NumShards(); i++ {
		lo, _ := g.ShardInterval(i)
		boundaries[i] = uint32(lo)
	}
	boundaries[g.NumShards()] = g.NumVertices()

	man := Manifest{
		Name:        name,
		NumVertices: g.NumVertices(),
		NumEdges:    numEdges,
		Codec:       t.String(),
		Boundaries:  boundaries,
	}
	raw, err := json.Marshal(&man)
	if err != nil {
		return err
	}
	return blobs.Put(ctx, ManifestName, raw)
}
