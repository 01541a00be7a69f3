package grpc

import (
	"github.com/ugorji/go/codec"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype clients select with
// grpc.CallContentSubtype to reach this server. The message structs in
// this package have no generated protobuf marshaling, so the default
// proto codec cannot carry them and cbor is effectively mandatory.
const CodecName = "cbor"

func init() {
	encoding.RegisterCodec(cborCodec{})
}

var cborHandle = new(codec.CborHandle)

// cborCodec adapts the ugorji CBOR handle to the grpc encoding.Codec
// interface. CBOR is self-describing, which lets plain Go structs with
// codec tags serve as the wire contract.
type cborCodec struct{}

func (cborCodec) Marshal(v interface{}) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, cborHandle).Encode(v); err != nil {
		return nil, err
	}
	return buf, nil
}

func (cborCodec) Unmarshal(data []byte, v interface{}) error {
	return codec.NewDecoderBytes(data, cborHandle).Decode(v)
}

func (cborCodec) Name() string {
	return CodecName
}
