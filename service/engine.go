package service

import (
	"errors"
	"sort"
	"sync"
	"time"

	"quasar/domain/orderbook"
	"quasar/infra/memory"
	"quasar/infra/sequence"
)

var (
	ErrEmptySymbol     = errors.New("engine: symbol must not be empty")
	ErrInvalidPrice    = errors.New("engine: price must be positive")
	ErrInvalidQuantity = errors.New("engine: quantity must be positive")
)

// TradeObserver receives every emitted trade, synchronously on the
// submitting goroutine, in trade-id order per book. It runs with no
// engine or book lock held and must not call back into the engine.
type TradeObserver func(orderbook.Trade)

// Engine is the write entry point of the venue: it partitions orders
// into per-symbol books, issues ids, routes cancellations through a
// reverse index and fans emitted trades out to the observer.
type Engine struct {
	booksMu sync.RWMutex
	books   map[string]*orderbook.OrderBook

	indexMu      sync.Mutex
	orderSymbols map[uint64]string

	seq  *sequence.Sequencer
	pool *memory.Pool[orderbook.Order]

	obsMu    sync.Mutex
	observer TradeObserver

	stats engineStats
}

func NewEngine() *Engine {
	return &Engine{
		books:        make(map[string]*orderbook.OrderBook),
		orderSymbols: make(map[uint64]string),
		seq:          sequence.New(1),
		pool:         memory.NewPool(func() *orderbook.Order { return &orderbook.Order{} }),
	}
}

// SetTradeObserver installs the single trade callback.
func (e *Engine) SetTradeObserver(fn TradeObserver) {
	e.obsMu.Lock()
	e.observer = fn
	e.obsMu.Unlock()
}

// Submit validates, assigns an order id and routes the order to its
// book. Rejections consume no id and create no book.
func (e *Engine) Submit(clientID uint64, symbol string, side orderbook.Side, price, qty int64) (uint64, error) {
	if symbol == "" {
		e.stats.rejectedOrders.Add(1)
		return 0, ErrEmptySymbol
	}
	if price <= 0 {
		e.stats.rejectedOrders.Add(1)
		return 0, ErrInvalidPrice
	}
	if qty <= 0 {
		e.stats.rejectedOrders.Add(1)
		return 0, ErrInvalidQuantity
	}

	orderID := e.seq.Next()
	now := time.Now()
	o := e.pool.Get()
	*o = orderbook.Order{
		ID:          orderID,
		ClientID:    clientID,
		Symbol:      symbol,
		Side:        side,
		Price:       price,
		Qty:         qty,
		Status:      orderbook.StatusNew,
		CreatedTime: now,
		UpdatedTime: now,
	}

	e.stats.totalOrders.Add(1)
	e.stats.activeOrders.Add(1)

	e.indexMu.Lock()
	e.orderSymbols[orderID] = symbol
	e.indexMu.Unlock()

	book := e.bookFor(symbol)

	// The book consumes o; from here on only the result may be read.
	res := book.Process(o)

	if len(res.Closed) > 0 {
		e.stats.activeOrders.Add(-int64(len(res.Closed)))
		e.indexMu.Lock()
		for _, id := range res.Closed {
			delete(e.orderSymbols, id)
		}
		e.indexMu.Unlock()
	}

	for _, t := range res.Trades {
		e.stats.totalTrades.Add(1)
		e.notify(t)
	}

	return orderID, nil
}

// Cancel routes a cancellation through the reverse index. It reports
// true only if the order was still active.
func (e *Engine) Cancel(orderID uint64) bool {
	e.indexMu.Lock()
	symbol, ok := e.orderSymbols[orderID]
	e.indexMu.Unlock()
	if !ok {
		return false
	}

	e.booksMu.RLock()
	book := e.books[symbol]
	e.booksMu.RUnlock()
	if book == nil {
		return false
	}

	if !book.Cancel(orderID) {
		return false
	}

	e.indexMu.Lock()
	delete(e.orderSymbols, orderID)
	e.indexMu.Unlock()

	e.stats.cancelledOrders.Add(1)
	e.stats.activeOrders.Add(-1)
	return true
}

// BestBid returns the symbol's best bid price in ticks.
func (e *Engine) BestBid(symbol string) (int64, bool) {
	if book := e.lookup(symbol); book != nil {
		return book.BestBid()
	}
	return 0, false
}

// BestAsk returns the symbol's best ask price in ticks.
func (e *Engine) BestAsk(symbol string) (int64, bool) {
	if book := e.lookup(symbol); book != nil {
		return book.BestAsk()
	}
	return 0, false
}

// Spread returns best ask minus best bid for the symbol.
func (e *Engine) Spread(symbol string) (int64, bool) {
	if book := e.lookup(symbol); book != nil {
		return book.Spread()
	}
	return 0, false
}

// BidLevels returns up to max aggregated bid levels, best first.
func (e *Engine) BidLevels(symbol string, max int) []orderbook.Level {
	if book := e.lookup(symbol); book != nil {
		return book.BidLevels(max)
	}
	return nil
}

// AskLevels returns up to max aggregated ask levels, best first.
func (e *Engine) AskLevels(symbol string, max int) []orderbook.Level {
	if book := e.lookup(symbol); book != nil {
		return book.AskLevels(max)
	}
	return nil
}

// BidVolume is the total resting buy quantity for the symbol.
func (e *Engine) BidVolume(symbol string) int64 {
	if book := e.lookup(symbol); book != nil {
		return book.BidVolume()
	}
	return 0
}

// AskVolume is the total resting sell quantity for the symbol.
func (e *Engine) AskVolume(symbol string) int64 {
	if book := e.lookup(symbol); book != nil {
		return book.AskVolume()
	}
	return 0
}

// AllSymbols lists every symbol with a book, sorted.
func (e *Engine) AllSymbols() []string {
	e.booksMu.RLock()
	out := make([]string, 0, len(e.books))
	for sym := range e.books {
		out = append(out, sym)
	}
	e.booksMu.RUnlock()
	sort.Strings(out)
	return out
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

func (e *Engine) lookup(symbol string) *orderbook.OrderBook {
	e.booksMu.RLock()
	defer e.booksMu.RUnlock()
	return e.books[symbol]
}

// bookFor returns the symbol's book, creating it on first use. The
// books lock is released before any book method runs.
func (e *Engine) bookFor(symbol string) *orderbook.OrderBook {
	e.booksMu.RLock()
	book := e.books[symbol]
	e.booksMu.RUnlock()
	if book != nil {
		return book
	}

	e.booksMu.Lock()
	defer e.booksMu.Unlock()
	if book = e.books[symbol]; book == nil {
		book = orderbook.NewOrderBook(symbol, e.pool)
		e.books[symbol] = book
	}
	return book
}

func (e *Engine) notify(t orderbook.Trade) {
	e.obsMu.Lock()
	fn := e.observer
	e.obsMu.Unlock()
	if fn != nil {
		fn(t)
	}
}
