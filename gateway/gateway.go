// Package gateway is the binary-framed TCP ingress. It decodes and
// validates client frames, converts wire prices to ticks and hands
// clean order intents to the matching core; everything malformed stops
// here.
package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quasar/domain/orderbook"
	"quasar/infra/kafka"
)

// Core is the slice of the engine the gateway needs.
type Core interface {
	Submit(clientID uint64, symbol string, side orderbook.Side, price, qty int64) (uint64, error)
	Cancel(orderID uint64) bool
}

type Config struct {
	Addr           string
	MaxMessageSize int
	TickScale      int64 // ticks per whole price unit
}

// Gateway accepts client connections and runs one reader goroutine per
// session. Accepted order intents are optionally mirrored to the order
// feed, keyed by symbol.
type Gateway struct {
	cfg   Config
	core  Core
	feed  *kafka.Producer
	stats Stats
	wg    sync.WaitGroup
}

func New(cfg Config, core Core, feed *kafka.Producer) *Gateway {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.TickScale <= 0 {
		cfg.TickScale = 100
	}
	return &Gateway{cfg: cfg, core: core, feed: feed}
}

// Serve listens and accepts until ctx is cancelled. It returns after
// the listener closes; session goroutines drain on their own.
func (g *Gateway) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.cfg.Addr)
	if err != nil {
		return err
	}
	log.Printf("[gateway] listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		g.stats.ConnectionsAccepted.Add(1)
		g.stats.ConnectionsActive.Add(1)

		s := &session{id: uuid.New(), conn: conn, gw: g}
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			s.run(ctx)
		}()
	}
}

// Wait blocks until every session goroutine has exited.
func (g *Gateway) Wait() { g.wg.Wait() }

// Stats returns a snapshot of the gateway counters.
func (g *Gateway) Stats() StatsSnapshot { return g.stats.snapshot() }

type session struct {
	id   uuid.UUID
	conn net.Conn
	gw   *Gateway
}

func (s *session) run(ctx context.Context) {
	defer func() {
		s.conn.Close()
		s.gw.stats.ConnectionsActive.Add(-1)
		log.Printf("[gateway] session %s closed", s.id)
	}()
	log.Printf("[gateway] session %s opened from %s", s.id, s.conn.RemoteAddr())

	for {
		msgType, payload, err := ReadFrame(s.conn, s.gw.cfg.MaxMessageSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.gw.stats.ProtocolErrors.Add(1)
				log.Printf("[gateway] session %s read error: %v", s.id, err)
			}
			return
		}
		s.gw.stats.MessagesReceived.Add(1)
		s.gw.stats.BytesReceived.Add(uint64(5 + len(payload)))

		switch msgType {
		case MsgNewOrder:
			s.handleNewOrder(ctx, payload)
		case MsgCancelOrder:
			s.handleCancel(payload)
		default:
			s.gw.stats.ProtocolErrors.Add(1)
			s.reply(MsgReject, encodeReject(RejectMalformed))
		}
	}
}

func (s *session) handleNewOrder(ctx context.Context, payload []byte) {
	req, err := decodeNewOrder(payload)
	if err != nil {
		s.gw.stats.ProtocolErrors.Add(1)
		s.reply(MsgReject, encodeReject(RejectMalformed))
		return
	}
	if !validNewOrder(req) {
		s.gw.stats.ValidationErrors.Add(1)
		s.reply(MsgReject, encodeReject(RejectValidation))
		return
	}
	ticks, err := priceToTicks(req.Price, s.gw.cfg.TickScale)
	if err != nil {
		s.gw.stats.ValidationErrors.Add(1)
		s.reply(MsgReject, encodeReject(RejectValidation))
		return
	}
	side := orderbook.Buy
	if req.Side == 1 {
		side = orderbook.Sell
	}

	orderID, err := s.gw.core.Submit(req.ClientID, req.Symbol, side, ticks, int64(req.Qty))
	if err != nil {
		s.gw.stats.ValidationErrors.Add(1)
		s.reply(MsgReject, encodeReject(RejectValidation))
		return
	}

	if s.gw.feed != nil {
		if err := s.gw.feed.Send(ctx, []byte(req.Symbol), payload); err != nil {
			log.Printf("[gateway] order feed publish failed: %v", err)
		} else {
			s.gw.stats.MessagesPublished.Add(1)
		}
	}
	s.reply(MsgAck, encodeAck(orderID))
}

func (s *session) handleCancel(payload []byte) {
	orderID, err := decodeCancelOrder(payload)
	if err != nil {
		s.gw.stats.ProtocolErrors.Add(1)
		s.reply(MsgReject, encodeReject(RejectMalformed))
		return
	}
	if s.gw.core.Cancel(orderID) {
		s.reply(MsgCancelled, encodeAck(orderID))
	} else {
		s.reply(MsgReject, encodeReject(RejectUnknownOrder))
	}
}

func (s *session) reply(msgType byte, payload []byte) {
	if err := WriteFrame(s.conn, msgType, payload); err != nil {
		log.Printf("[gateway] session %s write error: %v", s.id, err)
	}
}

func validNewOrder(req NewOrderRequest) bool {
	if req.Symbol == "" || len(req.Symbol) > maxSymbolLen {
		return false
	}
	if req.Side > 1 {
		return false
	}
	if req.Qty == 0 || req.Qty > math.MaxInt64 {
		return false
	}
	if req.Price <= 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		return false
	}
	return true
}

// priceToTicks converts a wire double to ticks exactly. Prices that do
// not land on a tick are rejected rather than rounded.
func priceToTicks(price float64, scale int64) (int64, error) {
	d := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(scale))
	if !d.IsInteger() {
		return 0, errors.New("gateway: price not aligned to tick size")
	}
	ticks := d.IntPart()
	if ticks <= 0 {
		return 0, errors.New("gateway: price out of range")
	}
	return ticks, nil
}
