package orderbook

import "time"

// Trade is an immutable record of a single match. The taker is the
// newly arrived order, the maker the resting one; execution happens at
// the maker's price. TradeID is monotonic per book.
type Trade struct {
	TradeID       uint64
	TakerOrderID  uint64
	MakerOrderID  uint64
	TakerClientID uint64
	MakerClientID uint64
	Symbol        string
	Price         int64
	Qty           int64
	Timestamp     time.Time
}

// InvolvesOrder reports whether the order took part in this trade.
func (t Trade) InvolvesOrder(orderID uint64) bool {
	return t.TakerOrderID == orderID || t.MakerOrderID == orderID
}

// InvolvesClient reports whether the client was on either side.
func (t Trade) InvolvesClient(clientID uint64) bool {
	return t.TakerClientID == clientID || t.MakerClientID == clientID
}

// Notional is price times quantity, in tick units.
func (t Trade) Notional() int64 {
	return t.Price * t.Qty
}
