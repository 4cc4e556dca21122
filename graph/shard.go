package graph

import (
	"encoding/binary"
	"fmt"

	"github.com/ramblegraph/ramble/codec"
)

// Shard blob layout:
//
//	magic "RMBS" (4) | version uint8 | codec block (see codec package)
//
// The codec block payload is:
//
//	lo uint32 | numVertices uint32 | numEdges uint32 |
//	offsets [numVertices+1]uint32 | edges [numEdges]uint32
//
// All integers little-endian.
const (
	shardMagic   = "RMBS"
	shardVersion = 1
)

// EncodeShard serializes a shard with the given block codec.
func EncodeShard(s *Shard, t codec.Type) ([]byte, error) {
	n := int(s.hi - s.lo)
	payload := make([]byte, 12+4*(n+1)+4*len(s.edges))

	binary.LittleEndian.PutUint32(payload[0:4], uint32(s.lo))
	binary.LittleEndian.PutUint32(payload[4:8], uint32(n))
	binary.LittleEndian.PutUint32(payload[8:12], uint32(len(s.edges)))

	off := 12
	for _, o := range s.offsets {
		binary.LittleEndian.PutUint32(payload[off:off+4], o)
		off += 4
	}
	for _, e := range s.edges {
		binary.LittleEndian.PutUint32(payload[off:off+4], uint32(e))
		off += 4
	}

	block, err := codec.Compress(payload, t)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 5+len(block))
	out = append(out, shardMagic...)
	out = append(out, shardVersion)
	return append(out, block...), nil
}

// DecodeShard deserializes a shard blob produced by EncodeShard.
func DecodeShard(data []byte) (*Shard, error) {
	if len(data) < 5 || string(data[:4]) != shardMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptShard)
	}
	if data[4] != shardVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptShard, data[4])
	}

	payload, err := codec.Decompress(data[5:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptShard, err)
	}
	if len(payload) < 12 {
		return nil, fmt.Errorf("%w: truncated header", ErrCorruptShard)
	}

	lo := Vertex(binary.LittleEndian.Uint32(payload[0:4]))
	n := int(binary.LittleEndian.Uint32(payload[4:8]))
	numEdges := int(binary.LittleEndian.Uint32(payload[8:12]))

	want := 12 + 4*(n+1) + 4*numEdges
	if len(payload) != want {
		return nil, fmt.Errorf("%w: size mismatch (have %d, want %d)", ErrCorruptShard, len(payload), want)
	}

	offsets := make([]uint32, n+1)
	off := 12
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(payload[off : off+4])
		off += 4
	}
	if offsets[0] != 0 || int(offsets[n]) != numEdges {
		return nil, fmt.Errorf("%w: inconsistent offsets", ErrCorruptShard)
	}
	for i := 1; i <= n; i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: non-monotonic offsets", ErrCorruptShard)
		}
	}

	edges := make([]Vertex, numEdges)
	for i := range edges {
		edges[i] = Vertex(binary.LittleEndian.Uint32(payload[off : off+4]))
		off += 4
	}

	return &Shard{
		lo:      lo,
		hi:      lo + Vertex(n),
		offsets: offsets,
		edges:   edges,
	}, nil
}
