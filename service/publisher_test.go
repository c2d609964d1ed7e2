package service

import (
	"testing"
	"time"

	"quasar/domain/orderbook"
	"quasar/infra/outbox"
	"quasar/infra/tradelog"
)

func TestPublisherJournalsAndStages(t *testing.T) {
	journalDir := t.TempDir()
	journal, err := tradelog.Open(tradelog.Config{Dir: journalDir})
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	staging, err := outbox.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	defer staging.Close()

	e := NewEngine()
	p := NewTradePublisher(journal, staging)
	e.SetTradeObserver(p.Publish)

	if _, err := e.Submit(100, "BTC", orderbook.Buy, 50000, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Submit(101, "BTC", orderbook.Sell, 50000, 4); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Submit(102, "BTC", orderbook.Sell, 50000, 6); err != nil {
		t.Fatal(err)
	}
	if err := journal.Close(); err != nil {
		t.Fatal(err)
	}

	// both trades must be in the journal, in order, decodable
	r, err := tradelog.OpenReader(journalDir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var trades []orderbook.Trade
	for r.Next() {
		rec := r.Record()
		if rec.Type != tradelog.RecordTrade {
			t.Fatalf("unexpected record type %v", rec.Type)
		}
		tr, err := tradelog.UnmarshalTrade(rec.Data)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		trades = append(trades, tr)
	}
	if r.Err() != nil {
		t.Fatalf("reader: %v", r.Err())
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 journaled trades, got %d", len(trades))
	}
	if trades[0].Qty != 4 || trades[1].Qty != 6 {
		t.Errorf("unexpected quantities: %d, %d", trades[0].Qty, trades[1].Qty)
	}
	if trades[0].Price != 50000 || trades[1].Price != 50000 {
		t.Errorf("trades must execute at the maker price")
	}

	// and staged for the broadcaster
	var pending int
	err = staging.ScanPending(time.Minute, func(e *outbox.Entry) error {
		if _, err := tradelog.UnmarshalTrade(e.Payload); err != nil {
			t.Errorf("staged payload not decodable: %v", err)
		}
		pending++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if pending != 2 {
		t.Errorf("expected 2 staged deliveries, got %d", pending)
	}
}

func TestDeliveryKeyUniqueAcrossBooks(t *testing.T) {
	a := orderbook.Trade{Symbol: "BTC", TradeID: 1}
	b := orderbook.Trade{Symbol: "ETH", TradeID: 1}
	if DeliveryKey(a) == DeliveryKey(b) {
		t.Error("delivery keys must differ across symbols")
	}
}
