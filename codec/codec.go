// Package codec provides block compression for graph shard payloads.
//
// Shard files are written once and read many times, so the codec favors
// decompression speed. Blocks are self-describing: a one-byte codec tag and
// the uncompressed size precede the payload, so readers do not need out-of-band
// codec configuration to open a shard.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Type identifies the compression algorithm of a block.
type Type uint8

const (
	// None stores blocks uncompressed.
	None Type = 0
	// LZ4 uses LZ4 block compression (fast decode, moderate ratio).
	LZ4 Type = 1
	// ZSTD uses zstd block compression (better ratio, still fast decode).
	ZSTD Type = 2
)

// ErrCorruptBlock is returned when a block header or payload cannot be decoded.
var ErrCorruptBlock = errors.New("codec: corrupt block")

// String returns the stable codec name used in manifests.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ByName returns a codec type by its stable name.
func ByName(name string) (Type, bool) {
	switch name {
	case "none", "":
		return None, true
	case "lz4":
		return LZ4, true
	case "zstd":
		return ZSTD, true
	default:
		return None, false
	}
}

// Block header layout: [tag uint8][uncompressedSize uint32].
// A tag of None means the payload is stored verbatim, which also happens
// when compression would not shrink the block.
const headerSize = 5

// Compress encodes data as a self-describing block.
func Compress(data []byte, t Type) ([]byte, error) {
	var (
		payload []byte
		err     error
	)

	switch t {
	case None:
	case LZ4:
		payload, err = compressLZ4(data)
	case ZSTD:
		payload = compressZSTD(data)
	default:
		return nil, fmt.Errorf("codec: unsupported type %s", t)
	}
	if err != nil {
		return nil, err
	}

	// Fall back to verbatim storage when compression does not help.
	if payload == nil || len(payload) >= len(data) {
		t = None
		payload = data
	}

	block := make([]byte, headerSize+len(payload))
	block[0] = byte(t)
	binary.LittleEndian.PutUint32(block[1:5], uint32(len(data)))
	copy(block[headerSize:], payload)
	return block, nil
}

// Decompress decodes a block produced by Compress.
func Decompress(block []byte) ([]byte, error) {
	if len(block) < headerSize {
		return nil, ErrCorruptBlock
	}
	t := Type(block[0])
	size := binary.LittleEndian.Uint32(block[1:5])
	payload := block[headerSize:]

	switch t {
	case None:
		if uint32(len(payload)) != size {
			return nil, ErrCorruptBlock
		}
		out := make([]byte, size)
		copy(out, payload)
		return out, nil
	case LZ4:
		return decompressLZ4(payload, int(size))
	case ZSTD:
		return decompressZSTD(payload, int(size))
	default:
		return nil, fmt.Errorf("%w: unknown codec tag %d", ErrCorruptBlock, t)
	}
}
