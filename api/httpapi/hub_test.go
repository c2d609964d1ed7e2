package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quasar/domain/orderbook"
)

func TestHubStreamsTrades(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// registration races the broadcast; give the hub a beat
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	trade := orderbook.Trade{
		TradeID: 1, TakerOrderID: 2, MakerOrderID: 1,
		Symbol: "BTC", Price: 50000, Qty: 5, Timestamp: time.Now(),
	}
	hub.Broadcast(trade)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg outboundMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "trade" {
		t.Errorf("expected type trade, got %q", msg.Type)
	}
	if msg.Data.Symbol != "BTC" || msg.Data.Price != 50000 || msg.Data.Qty != 5 {
		t.Errorf("unexpected trade payload: %+v", msg.Data)
	}
}

func TestHubDropsDepartedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("departed client never dropped")
		}
		time.Sleep(time.Millisecond)
	}

	// broadcasting to nobody must not panic
	hub.Broadcast(orderbook.Trade{TradeID: 1, Symbol: "BTC"})
}
