// Package grpcapi exposes the engine over gRPC. The service descriptor
// is registered by hand with a JSON codec, so no generated bindings
// are required; clients dial with the "json" content subtype.
package grpcapi

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"quasar/domain/orderbook"
	"quasar/service"
)

// Codec is the JSON codec the service speaks.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error)    { return json.Marshal(v) }
func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (Codec) Name() string                     { return "json" }

func init() {
	encoding.RegisterCodec(Codec{})
}

type SubmitRequest struct {
	ClientID uint64 `json:"client_id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"` // BUY or SELL
	Price    int64  `json:"price"`
	Qty      int64  `json:"qty"`
}

type SubmitResponse struct {
	OrderID uint64 `json:"order_id"`
}

type CancelRequest struct {
	OrderID uint64 `json:"order_id"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type BookRequest struct {
	Symbol string `json:"symbol"`
	Depth  int    `json:"depth"`
}

type BookLevel struct {
	Price  int64 `json:"price"`
	Qty    int64 `json:"qty"`
	Orders int   `json:"orders"`
}

type BookResponse struct {
	Symbol  string      `json:"symbol"`
	Bids    []BookLevel `json:"bids"`
	Asks    []BookLevel `json:"asks"`
	BestBid *int64      `json:"best_bid"`
	BestAsk *int64      `json:"best_ask"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Stats   service.Stats `json:"stats"`
	Symbols []string      `json:"symbols"`
}

// Server adapts the engine to the MarketService contract.
type Server struct {
	engine *service.Engine
}

func NewServer(engine *service.Engine) *Server {
	return &Server{engine: engine}
}

// Register attaches the service to a grpc.Server.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&serviceDesc, s)
}

func (s *Server) submit(_ context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	var side orderbook.Side
	switch strings.ToUpper(req.Side) {
	case "BUY":
		side = orderbook.Buy
	case "SELL":
		side = orderbook.Sell
	default:
		return nil, status.Errorf(codes.InvalidArgument, "side must be BUY or SELL, got %q", req.Side)
	}
	orderID, err := s.engine.Submit(req.ClientID, req.Symbol, side, req.Price, req.Qty)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	log.Printf("[grpc] submitted order %d %s %s %d@%d", orderID, req.Symbol, side, req.Qty, req.Price)
	return &SubmitResponse{OrderID: orderID}, nil
}

func (s *Server) cancel(_ context.Context, req *CancelRequest) (*CancelResponse, error) {
	return &CancelResponse{Cancelled: s.engine.Cancel(req.OrderID)}, nil
}

func (s *Server) book(_ context.Context, req *BookRequest) (*BookResponse, error) {
	depth := req.Depth
	if depth <= 0 {
		depth = 10
	}
	resp := &BookResponse{
		Symbol: req.Symbol,
		Bids:   toBookLevels(s.engine.BidLevels(req.Symbol, depth)),
		Asks:   toBookLevels(s.engine.AskLevels(req.Symbol, depth)),
	}
	if bid, ok := s.engine.BestBid(req.Symbol); ok {
		resp.BestBid = &bid
	}
	if ask, ok := s.engine.BestAsk(req.Symbol); ok {
		resp.BestAsk = &ask
	}
	return resp, nil
}

func (s *Server) stats(_ context.Context, _ *StatsRequest) (*StatsResponse, error) {
	return &StatsResponse{Stats: s.engine.Stats(), Symbols: s.engine.AllSymbols()}, nil
}

func toBookLevels(levels []orderbook.Level) []BookLevel {
	out := make([]BookLevel, len(levels))
	for i, lvl := range levels {
		out[i] = BookLevel{Price: lvl.Price, Qty: lvl.Qty, Orders: lvl.Orders}
	}
	return out
}

const serviceName = "quasar.v1.MarketService"

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*marketService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
		{MethodName: "Cancel", Handler: cancelHandler},
		{MethodName: "Book", Handler: bookHandler},
		{MethodName: "Stats", Handler: statsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quasar/api/grpcapi",
}

// marketService pins the handler type in the service descriptor.
type marketService interface {
	submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	cancel(context.Context, *CancelRequest) (*CancelResponse, error)
	book(context.Context, *BookRequest) (*BookResponse, error)
	stats(context.Context, *StatsRequest) (*StatsResponse, error)
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Submit"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).submit(ctx, req.(*SubmitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CancelRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).cancel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Cancel"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).cancel(ctx, req.(*CancelRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func bookHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BookRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).book(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Book"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).book(ctx, req.(*BookRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Stats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).stats(ctx, req.(*StatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}
