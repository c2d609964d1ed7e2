// Package orderbook implements a single-symbol limit order book with
// price-time priority matching.
//
// The book owns every Order it rests. Side indexes (red-black trees of
// price levels with per-level FIFO queues) carry order ids, never
// pointers; all resolution goes through the book's owning map. Each
// resting order has a handle into its level, so cancellation unlinks it
// eagerly in O(log P).
package orderbook
