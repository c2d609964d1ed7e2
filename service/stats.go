package service

import "sync/atomic"

// engineStats is the engine's counter pack. Plain atomics, no mutex on
// the submit path.
type engineStats struct {
	totalOrders     atomic.Uint64
	activeOrders    atomic.Int64
	totalTrades     atomic.Uint64
	cancelledOrders atomic.Uint64
	rejectedOrders  atomic.Uint64
}

// Stats is a point-in-time copy of the engine counters.
type Stats struct {
	TotalOrders     uint64 `json:"total_orders"`
	ActiveOrders    int64  `json:"active_orders"`
	TotalTrades     uint64 `json:"total_trades"`
	CancelledOrders uint64 `json:"cancelled_orders"`
	RejectedOrders  uint64 `json:"rejected_orders"`
}

func (s *engineStats) snapshot() Stats {
	return Stats{
		TotalOrders:     s.totalOrders.Load(),
		ActiveOrders:    s.activeOrders.Load(),
		TotalTrades:     s.totalTrades.Load(),
		CancelledOrders: s.cancelledOrders.Load(),
		RejectedOrders:  s.rejectedOrders.Load(),
	}
}
