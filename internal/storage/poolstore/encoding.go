package poolstore

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/LeJamon/goAMMd/internal/storage/poolstore/compression"
)

const (
	// recordHeaderSize is kind (1) + seq (8) + created (8) + data length (4).
	recordHeaderSize = 21

	// minCompressionSize keeps very small payloads uncompressed.
	minCompressionSize = 128
)

// encodeRecord serializes a record for storage. The layout is a little-endian
// header, the payload, and a trailing flag byte marking whether the payload
// is compressed. The payload is compressed only when it is large enough and
// compression saves more than 10%.
func encodeRecord(rec *Record, comp compression.Compressor, level int) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	payload := rec.Data
	compressed := false

	if len(rec.Data) > minCompressionSize && comp.Name() != "none" {
		compressedData, err := comp.Compress(rec.Data, level)
		if err == nil && len(compressedData) < len(rec.Data)*9/10 {
			payload = compressedData
			compressed = true
		}
	}

	buf := make([]byte, recordHeaderSize+len(payload)+1)
	buf[0] = byte(rec.Kind)
	binary.LittleEndian.PutUint64(buf[1:9], rec.Seq)
	binary.LittleEndian.PutUint64(buf[9:17], uint64(rec.CreatedAt.UnixNano()))
	binary.LittleEndian.PutUint32(buf[17:21], uint32(len(payload)))
	copy(buf[recordHeaderSize:], payload)

	if compressed {
		buf[recordHeaderSize+len(payload)] = 1
	}

	return buf, nil
}

// decodeRecord deserializes a stored record. The returned record owns its
// data; the input slice may be reused by the backend.
func decodeRecord(key Key, value []byte, comp compression.Compressor) (*Record, error) {
	if len(value) < recordHeaderSize+1 {
		return nil, fmt.Errorf("%w: value too short (%d bytes)", ErrDataCorrupt, len(value))
	}

	kind := RecordKind(value[0])
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown record kind %d", ErrDataCorrupt, value[0])
	}
	seq := binary.LittleEndian.Uint64(value[1:9])
	createdNanos := int64(binary.LittleEndian.Uint64(value[9:17]))
	dataLen := int(binary.LittleEndian.Uint32(value[17:21]))

	if recordHeaderSize+dataLen+1 > len(value) {
		return nil, fmt.Errorf("%w: truncated payload (%d bytes declared)", ErrDataCorrupt, dataLen)
	}

	payload := value[recordHeaderSize : recordHeaderSize+dataLen]
	compressedFlag := value[recordHeaderSize+dataLen]

	var data []byte
	if compressedFlag == 1 {
		decompressed, err := comp.Decompress(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		data = decompressed
	} else {
		data = make([]byte, len(payload))
		copy(data, payload)
	}

	return &Record{
		Kind:      kind,
		Key:       key,
		Seq:       seq,
		Data:      data,
		CreatedAt: time.Unix(0, createdNanos).UTC(),
	}, nil
}
