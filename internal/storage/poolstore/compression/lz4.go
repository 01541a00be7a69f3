package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4"
)

// maxDeclaredSize bounds the allocation a decoded length header can demand.
// Pool snapshots are far below this; anything larger is corrupt.
const maxDeclaredSize = 256 << 20

// NoCompressor passes payloads through unchanged.
type NoCompressor struct{}

func (NoCompressor) Name() string { return "none" }

// Compress returns a copy of data so the caller may keep the result.
func (NoCompressor) Compress(data []byte, level int) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Decompress returns a copy of data.
func (NoCompressor) Decompress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (NoCompressor) MaxCompressedSize(uncompressedSize int) int {
	return uncompressedSize
}

// LZ4Compressor encodes payloads as a varint uncompressed length followed by
// one LZ4 block. Carrying the length lets Decompress size the output buffer
// exactly instead of guessing.
type LZ4Compressor struct{}

func (LZ4Compressor) Name() string { return "lz4" }

// Compress encodes data as a single block. Levels above 1 use the high
// compression encoder with the level as its search depth.
func (LZ4Compressor) Compress(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	// The destination is sized at the block bound, so the encoder never
	// reports incompressible input; it emits literals instead.
	buf := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(data)))
	header := binary.PutUvarint(buf, uint64(len(data)))

	var n int
	var err error
	if level > 1 {
		n, err = lz4.CompressBlockHC(data, buf[header:], level)
	} else {
		n, err = lz4.CompressBlock(data, buf[header:], nil)
	}
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	return buf[:header+n], nil
}

// Decompress decodes a payload produced by Compress.
func (LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	size, header := binary.Uvarint(data)
	if header <= 0 {
		return nil, fmt.Errorf("lz4 decompress: malformed length header")
	}
	if size > maxDeclaredSize {
		return nil, fmt.Errorf("lz4 decompress: declared size %d exceeds limit", size)
	}

	out := make([]byte, int(size))
	n, err := lz4.UncompressBlock(data[header:], out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, header declares %d", n, size)
	}

	return out, nil
}

func (LZ4Compressor) MaxCompressedSize(uncompressedSize int) int {
	return binary.MaxVarintLen64 + lz4.CompressBlockBound(uncompressedSize)
}
