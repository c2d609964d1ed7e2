package service

import (
	"fmt"
	"log"

	"quasar/domain/orderbook"
	"quasar/infra/outbox"
	"quasar/infra/tradelog"
)

// TradePublisher is the engine's trade observer: it journals each
// trade and stages it in the outbox for the broadcaster. Both writes
// are local, so the submit path never waits on the bus.
type TradePublisher struct {
	journal *tradelog.Log
	staging *outbox.Outbox
}

func NewTradePublisher(journal *tradelog.Log, staging *outbox.Outbox) *TradePublisher {
	return &TradePublisher{journal: journal, staging: staging}
}

// Publish records one trade. Failures are logged, not propagated: the
// match already happened and must not be unwound for an egress fault.
func (p *TradePublisher) Publish(t orderbook.Trade) {
	payload := tradelog.MarshalTrade(t)

	if p.journal != nil {
		rec := &tradelog.Record{Type: tradelog.RecordTrade, Data: payload}
		if err := p.journal.Append(rec); err != nil {
			log.Printf("[publisher] journal append failed for trade %s/%d: %v", t.Symbol, t.TradeID, err)
		}
	}
	if p.staging != nil {
		if err := p.staging.PutNew(DeliveryKey(t), payload); err != nil {
			log.Printf("[publisher] outbox put failed for trade %s/%d: %v", t.Symbol, t.TradeID, err)
		}
	}
}

// DeliveryKey names a trade uniquely across books: trade ids are only
// per-book monotonic, so the symbol qualifies them.
func DeliveryKey(t orderbook.Trade) string {
	return fmt.Sprintf("%s/%020d", t.Symbol, t.TradeID)
}
