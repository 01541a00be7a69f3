package poolstore

import (
	"fmt"
	"time"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/events"
	"google.golang.org/protobuf/encoding/protowire"
)

// Journal records use the protobuf wire format. Field numbers are frozen;
// new fields may be added but existing ones must not be renumbered.
const (
	journalFieldSeq       = 1 // varint
	journalFieldTime      = 2 // varint, unix nanoseconds
	journalFieldKind      = 3 // bytes
	journalFieldPair      = 4 // bytes
	journalFieldLiquidity = 5 // bytes, nested liquidity payload
	journalFieldSwap      = 6 // bytes, nested swap payload
)

const (
	liquidityFieldProvider = 1 // bytes
	liquidityFieldAmountA  = 2 // bytes, big-endian amount
	liquidityFieldAmountB  = 3 // bytes, big-endian amount
	liquidityFieldShares   = 4 // bytes, big-endian amount
)

const (
	swapFieldTrader    = 1 // bytes
	swapFieldAssetIn   = 2 // bytes
	swapFieldAssetOut  = 3 // bytes
	swapFieldAmountIn  = 4 // bytes, big-endian amount
	swapFieldAmountOut = 5 // bytes, big-endian amount
)

// EncodeJournalRecord serializes an event record for the journal.
func EncodeJournalRecord(rec events.Record) ([]byte, error) {
	if !rec.Kind.Valid() {
		return nil, fmt.Errorf("%w: event kind %q", ErrInvalidRecord, rec.Kind)
	}

	var buf []byte
	buf = protowire.AppendTag(buf, journalFieldSeq, protowire.VarintType)
	buf = protowire.AppendVarint(buf, rec.Seq)
	buf = protowire.AppendTag(buf, journalFieldTime, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(rec.Time.UnixNano()))
	buf = protowire.AppendTag(buf, journalFieldKind, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte(rec.Kind))
	buf = protowire.AppendTag(buf, journalFieldPair, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte(rec.Pair))

	if rec.Liquidity != nil {
		buf = protowire.AppendTag(buf, journalFieldLiquidity, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeLiquidityPayload(rec.Liquidity))
	}
	if rec.Swap != nil {
		buf = protowire.AppendTag(buf, journalFieldSwap, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeSwapPayload(rec.Swap))
	}

	return buf, nil
}

func encodeLiquidityPayload(p *events.LiquidityPayload) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, liquidityFieldProvider, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte(p.Provider))
	buf = protowire.AppendTag(buf, liquidityFieldAmountA, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.AmountA.Bytes())
	buf = protowire.AppendTag(buf, liquidityFieldAmountB, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.AmountB.Bytes())
	buf = protowire.AppendTag(buf, liquidityFieldShares, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.Shares.Bytes())
	return buf
}

func encodeSwapPayload(p *events.SwapPayload) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, swapFieldTrader, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte(p.Trader))
	buf = protowire.AppendTag(buf, swapFieldAssetIn, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte(p.AssetIn))
	buf = protowire.AppendTag(buf, swapFieldAssetOut, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte(p.AssetOut))
	buf = protowire.AppendTag(buf, swapFieldAmountIn, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.AmountIn.Bytes())
	buf = protowire.AppendTag(buf, swapFieldAmountOut, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.AmountOut.Bytes())
	return buf
}

// DecodeJournalRecord deserializes a journal record. Unknown fields are
// skipped so newer records stay readable by older readers.
func DecodeJournalRecord(data []byte) (events.Record, error) {
	var rec events.Record

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return events.Record{}, fmt.Errorf("%w: journal tag: %v", ErrDataCorrupt, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == journalFieldSeq && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return events.Record{}, fmt.Errorf("%w: journal seq", ErrDataCorrupt)
			}
			rec.Seq = v
			data = data[n:]

		case num == journalFieldTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return events.Record{}, fmt.Errorf("%w: journal time", ErrDataCorrupt)
			}
			rec.Time = time.Unix(0, int64(v)).UTC()
			data = data[n:]

		case num == journalFieldKind && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return events.Record{}, fmt.Errorf("%w: journal kind", ErrDataCorrupt)
			}
			rec.Kind = events.Kind(v)
			data = data[n:]

		case num == journalFieldPair && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return events.Record{}, fmt.Errorf("%w: journal pair", ErrDataCorrupt)
			}
			rec.Pair = string(v)
			data = data[n:]

		case num == journalFieldLiquidity && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return events.Record{}, fmt.Errorf("%w: liquidity payload", ErrDataCorrupt)
			}
			payload, err := decodeLiquidityPayload(v)
			if err != nil {
				return events.Record{}, err
			}
			rec.Liquidity = payload
			data = data[n:]

		case num == journalFieldSwap && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return events.Record{}, fmt.Errorf("%w: swap payload", ErrDataCorrupt)
			}
			payload, err := decodeSwapPayload(v)
			if err != nil {
				return events.Record{}, err
			}
			rec.Swap = payload
			data = data[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return events.Record{}, fmt.Errorf("%w: journal field %d", ErrDataCorrupt, num)
			}
			data = data[n:]
		}
	}

	if !rec.Kind.Valid() {
		return events.Record{}, fmt.Errorf("%w: event kind %q", ErrDataCorrupt, rec.Kind)
	}

	return rec, nil
}

func decodeLiquidityPayload(data []byte) (*events.LiquidityPayload, error) {
	var p events.LiquidityPayload

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: liquidity tag", ErrDataCorrupt)
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: liquidity field %d", ErrDataCorrupt, num)
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: liquidity field %d", ErrDataCorrupt, num)
		}
		data = data[n:]

		var err error
		switch num {
		case liquidityFieldProvider:
			p.Provider = string(v)
		case liquidityFieldAmountA:
			p.AmountA, err = amount.FromBytes(v)
		case liquidityFieldAmountB:
			p.AmountB, err = amount.FromBytes(v)
		case liquidityFieldShares:
			p.Shares, err = amount.FromBytes(v)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: liquidity field %d: %v", ErrDataCorrupt, num, err)
		}
	}

	return &p, nil
}

func decodeSwapPayload(data []byte) (*events.SwapPayload, error) {
	var p events.SwapPayload

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: swap tag", ErrDataCorrupt)
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: swap field %d", ErrDataCorrupt, num)
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: swap field %d", ErrDataCorrupt, num)
		}
		data = data[n:]

		var err error
		switch num {
		case swapFieldTrader:
			p.Trader = string(v)
		case swapFieldAssetIn:
			p.AssetIn = asset.Asset(v)
		case swapFieldAssetOut:
			p.AssetOut = asset.Asset(v)
		case swapFieldAmountIn:
			p.AmountIn, err = amount.FromBytes(v)
		case swapFieldAmountOut:
			p.AmountOut, err = amount.FromBytes(v)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: swap field %d: %v", ErrDataCorrupt, num, err)
		}
	}

	return &p, nil
}
