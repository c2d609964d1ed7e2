package httpapi

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"quasar/domain/orderbook"
)

// Hub fans the trade stream out to websocket subscribers. Sends are
// non-blocking: a subscriber that cannot keep up loses messages, never
// the venue's time.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan orderbook.Trade
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Broadcast delivers a trade to every subscriber with room in its
// buffer.
func (h *Hub) Broadcast(t orderbook.Trade) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- t:
		default:
		}
	}
}

// ServeWS upgrades the request and streams trades until the peer
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[httpapi] websocket upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan orderbook.Trade, 64)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	c.readPump(h)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump discards inbound messages; its job is noticing the close.
func (c *client) readPump(h *Hub) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for t := range c.send {
		if err := c.conn.WriteJSON(tradeMessage(t)); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

type tradeView struct {
	TradeID       uint64 `json:"trade_id"`
	TakerOrderID  uint64 `json:"taker_order_id"`
	MakerOrderID  uint64 `json:"maker_order_id"`
	TakerClientID uint64 `json:"taker_client_id"`
	MakerClientID uint64 `json:"maker_client_id"`
	Symbol        string `json:"symbol"`
	Price         int64  `json:"price"`
	Qty           int64  `json:"qty"`
	Timestamp     int64  `json:"ts_nanos"`
}

type outboundMessage struct {
	Type string    `json:"type"`
	Data tradeView `json:"data"`
}

func tradeMessage(t orderbook.Trade) outboundMessage {
	return outboundMessage{
		Type: "trade",
		Data: tradeView{
			TradeID:       t.TradeID,
			TakerOrderID:  t.TakerOrderID,
			MakerOrderID:  t.MakerOrderID,
			TakerClientID: t.TakerClientID,
			MakerClientID: t.MakerClientID,
			Symbol:        t.Symbol,
			Price:         t.Price,
			Qty:           t.Qty,
			Timestamp:     t.Timestamp.UnixNano(),
		},
	}
}
