package orderbook

import (
	"fmt"
	"sync"
	"time"

	"quasar/infra/memory"
)

// Level is one aggregated price level of a market-data snapshot.
type Level struct {
	Price  int64
	Qty    int64
	Orders int
}

// Result is everything a Process call produced: the trades in emission
// order, and the ids of all orders (makers and taker alike) that
// reached a terminal state while matching. The engine settles stats and
// its reverse index from Closed, so a terminal transition is counted
// exactly once regardless of role.
type Result struct {
	Trades []Trade
	Closed []uint64
}

// OrderBook matches incoming orders against resting liquidity for one
// symbol. A single mutex serializes matching, cancellation and every
// read query; at no point does the book call out while holding it.
type OrderBook struct {
	mu     sync.Mutex
	symbol string

	orders  map[uint64]*Order
	handles map[uint64]*levelNode
	bids    *LevelTree
	asks    *LevelTree

	nextTradeID uint64
	pool        *memory.Pool[Order]
}

// NewOrderBook creates an empty book. The pool is optional; when set,
// evicted orders are recycled through it.
func NewOrderBook(symbol string, pool *memory.Pool[Order]) *OrderBook {
	return &OrderBook{
		symbol:  symbol,
		orders:  make(map[uint64]*Order),
		handles: make(map[uint64]*levelNode),
		bids:    NewLevelTree(),
		asks:    NewLevelTree(),
		pool:    pool,
	}
}

func (b *OrderBook) Symbol() string { return b.symbol }

// Process consumes ownership of o: it matches o against the opposite
// side and rests any remainder. Trades come back in trade-id order.
func (b *OrderBook) Process(o *Order) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res Result
	b.match(o, &res)

	if o.IsActive() {
		b.rest(o)
	} else if o.Status == StatusFilled {
		res.Closed = append(res.Closed, o.ID)
		b.recycle(o)
	}
	return res
}

// match runs the price-time priority loop against the opposite side.
func (b *OrderBook) match(incoming *Order, res *Result) {
	for incoming.Remaining() > 0 {
		var lvl *PriceLevel
		if incoming.Side == Buy {
			lvl = b.asks.Min()
			if lvl == nil || lvl.Price > incoming.Price {
				break
			}
		} else {
			lvl = b.bids.Max()
			if lvl == nil || lvl.Price < incoming.Price {
				break
			}
		}

		node := lvl.head
		maker, ok := b.orders[node.id]
		if !ok {
			panic(fmt.Sprintf("orderbook %s: level %d references unknown order %d",
				b.symbol, lvl.Price, node.id))
		}

		qty := incoming.Remaining()
		if r := maker.Remaining(); r < qty {
			qty = r
		}

		b.nextTradeID++
		res.Trades = append(res.Trades, Trade{
			TradeID:       b.nextTradeID,
			TakerOrderID:  incoming.ID,
			MakerOrderID:  maker.ID,
			TakerClientID: incoming.ClientID,
			MakerClientID: maker.ClientID,
			Symbol:        b.symbol,
			Price:         lvl.Price,
			Qty:           qty,
			Timestamp:     time.Now(),
		})

		incoming.Fill(qty)
		maker.Fill(qty)

		if maker.Status == StatusFilled {
			res.Closed = append(res.Closed, maker.ID)
			b.evict(maker, node)
		} else {
			lvl.reduce(node, qty)
		}
	}
}

// rest inserts the unfilled remainder of o into its own side.
func (b *OrderBook) rest(o *Order) {
	side := b.bids
	if o.Side == Sell {
		side = b.asks
	}
	lvl := side.Upsert(o.Price)
	n := &levelNode{id: o.ID, qty: o.Remaining()}
	lvl.enqueue(n)
	b.orders[o.ID] = o
	b.handles[o.ID] = n
}

// evict unlinks a terminal order from its level and drops it from the
// owning maps, deleting the level once it empties.
func (b *OrderBook) evict(o *Order, n *levelNode) {
	lvl := n.level
	lvl.unlink(n)
	if lvl.empty() {
		if o.Side == Buy {
			b.bids.Delete(lvl.Price)
		} else {
			b.asks.Delete(lvl.Price)
		}
	}
	delete(b.orders, o.ID)
	delete(b.handles, o.ID)
	b.recycle(o)
}

func (b *OrderBook) recycle(o *Order) {
	if b.pool != nil {
		b.pool.Put(o)
	}
}

// Cancel marks the order cancelled and removes it from its side.
// It reports true only for orders that were still active.
func (b *OrderBook) Cancel(orderID uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return false
	}
	if !o.IsActive() {
		return false
	}
	n, ok := b.handles[orderID]
	if !ok {
		panic(fmt.Sprintf("orderbook %s: active order %d has no level handle", b.symbol, orderID))
	}
	o.Cancel()
	b.evict(o, n)
	return true
}

// BestBid returns the highest resting buy price, if any.
func (b *OrderBook) BestBid() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lvl := b.bids.Max()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest resting sell price, if any.
func (b *OrderBook) BestAsk() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lvl := b.asks.Min()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// Spread is best ask minus best bid, defined only when both sides rest.
func (b *OrderBook) Spread() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bid := b.bids.Max()
	ask := b.asks.Min()
	if bid == nil || ask == nil {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// BidLevels returns up to max aggregated bid levels, best first.
func (b *OrderBook) BidLevels(max int) []Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	if max <= 0 {
		return nil
	}
	out := make([]Level, 0, levelCap(max, b.bids.Size()))
	b.bids.ForEachDescending(func(lvl *PriceLevel) bool {
		out = append(out, Level{Price: lvl.Price, Qty: lvl.TotalQty, Orders: lvl.OrderCount})
		return len(out) < max
	})
	return out
}

// AskLevels returns up to max aggregated ask levels, best first.
func (b *OrderBook) AskLevels(max int) []Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	if max <= 0 {
		return nil
	}
	out := make([]Level, 0, levelCap(max, b.asks.Size()))
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		out = append(out, Level{Price: lvl.Price, Qty: lvl.TotalQty, Orders: lvl.OrderCount})
		return len(out) < max
	})
	return out
}

// levelCap bounds snapshot preallocation by what the side can yield.
func levelCap(max, size int) int {
	if size < max {
		return size
	}
	return max
}

// BidVolume is the total remaining quantity resting on the bid side.
func (b *OrderBook) BidVolume() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total int64
	b.bids.ForEachDescending(func(lvl *PriceLevel) bool {
		total += lvl.TotalQty
		return true
	})
	return total
}

// AskVolume is the total remaining quantity resting on the ask side.
func (b *OrderBook) AskVolume() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total int64
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		total += lvl.TotalQty
		return true
	})
	return total
}

// OpenOrders copies all resting orders, bids best-first then asks
// best-first. FIFO position within a level is preserved.
func (b *OrderBook) OpenOrders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Order, 0, len(b.orders))
	walk := func(lvl *PriceLevel) bool {
		for n := lvl.head; n != nil; n = n.next {
			o, ok := b.orders[n.id]
			if !ok {
				panic(fmt.Sprintf("orderbook %s: level %d references unknown order %d",
					b.symbol, lvl.Price, n.id))
			}
			out = append(out, *o)
		}
		return true
	}
	b.bids.ForEachDescending(walk)
	b.asks.ForEachAscending(walk)
	return out
}
