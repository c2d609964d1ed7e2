package tradelog

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"quasar/domain/orderbook"
)

// MarshalTrade encodes a trade as protobuf wire data. The same payload
// goes to the journal, the outbox and the bus, so downstream consumers
// need exactly one schema:
// trade_id=1, taker_order=2, maker_order=3, taker_client=4,
// maker_client=5, symbol=6, price=7, qty=8, ts_nanos=9.
func MarshalTrade(t orderbook.Trade) []byte {
	buf := make([]byte, 0, 64+len(t.Symbol))
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, t.TradeID)
	buf = protowire.AppendTag(buf, 2, protowire.VarintType)
	buf = protowire.AppendVarint(buf, t.TakerOrderID)
	buf = protowire.AppendTag(buf, 3, protowire.VarintType)
	buf = protowire.AppendVarint(buf, t.MakerOrderID)
	buf = protowire.AppendTag(buf, 4, protowire.VarintType)
	buf = protowire.AppendVarint(buf, t.TakerClientID)
	buf = protowire.AppendTag(buf, 5, protowire.VarintType)
	buf = protowire.AppendVarint(buf, t.MakerClientID)
	buf = protowire.AppendTag(buf, 6, protowire.BytesType)
	buf = protowire.AppendString(buf, t.Symbol)
	buf = protowire.AppendTag(buf, 7, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(t.Price))
	buf = protowire.AppendTag(buf, 8, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(t.Qty))
	buf = protowire.AppendTag(buf, 9, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(t.Timestamp.UnixNano()))
	return buf
}

// UnmarshalTrade decodes a MarshalTrade payload.
func UnmarshalTrade(b []byte) (orderbook.Trade, error) {
	var t orderbook.Trade
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return t, ErrCorruptRecord
		}
		b = b[n:]
		if typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return t, ErrCorruptRecord
			}
			if num == 6 {
				t.Symbol = string(v)
			}
			b = b[n:]
			continue
		}
		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return t, ErrCorruptRecord
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return t, ErrCorruptRecord
		}
		b = b[n:]
		switch num {
		case 1:
			t.TradeID = v
		case 2:
			t.TakerOrderID = v
		case 3:
			t.MakerOrderID = v
		case 4:
			t.TakerClientID = v
		case 5:
			t.MakerClientID = v
		case 7:
			t.Price = int64(v)
		case 8:
			t.Qty = int64(v)
		case 9:
			t.Timestamp = time.Unix(0, int64(v))
		}
	}
	return t, nil
}
