// Package httpapi serves the venue's read-side REST surface and the
// websocket trade feed. All prices in and out are integer ticks.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"quasar/domain/orderbook"
	"quasar/service"
)

type Server struct {
	engine       *service.Engine
	hub          *Hub
	defaultDepth int
}

func NewServer(engine *service.Engine, hub *Hub, defaultDepth int) *Server {
	if defaultDepth <= 0 {
		defaultDepth = 10
	}
	return &Server{engine: engine, hub: hub, defaultDepth: defaultDepth}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/symbols", s.handleSymbols).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/book/{symbol}", s.handleBook).Methods("GET")
	api.HandleFunc("/book/{symbol}/best", s.handleBest).Methods("GET")
	if s.hub != nil {
		api.HandleFunc("/stream/trades", s.hub.ServeWS).Methods("GET")
	}

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSymbols(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"symbols": s.engine.AllSymbols()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Stats())
}

type levelView struct {
	Price  int64 `json:"price"`
	Qty    int64 `json:"qty"`
	Orders int   `json:"orders"`
}

type bookResponse struct {
	Symbol    string      `json:"symbol"`
	Bids      []levelView `json:"bids"`
	Asks      []levelView `json:"asks"`
	BidVolume int64       `json:"bid_volume"`
	AskVolume int64       `json:"ask_volume"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	depth := s.defaultDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "depth must be a non-negative integer")
			return
		}
		depth = n
	}
	respondJSON(w, http.StatusOK, bookResponse{
		Symbol:    symbol,
		Bids:      toLevelViews(s.engine.BidLevels(symbol, depth)),
		Asks:      toLevelViews(s.engine.AskLevels(symbol, depth)),
		BidVolume: s.engine.BidVolume(symbol),
		AskVolume: s.engine.AskVolume(symbol),
	})
}

type bestResponse struct {
	Symbol  string `json:"symbol"`
	BestBid *int64 `json:"best_bid"`
	BestAsk *int64 `json:"best_ask"`
	Spread  *int64 `json:"spread"`
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	resp := bestResponse{Symbol: symbol}
	if bid, ok := s.engine.BestBid(symbol); ok {
		resp.BestBid = &bid
	}
	if ask, ok := s.engine.BestAsk(symbol); ok {
		resp.BestAsk = &ask
	}
	if spread, ok := s.engine.Spread(symbol); ok {
		resp.Spread = &spread
	}
	respondJSON(w, http.StatusOK, resp)
}

func toLevelViews(levels []orderbook.Level) []levelView {
	out := make([]levelView, len(levels))
	for i, lvl := range levels {
		out[i] = levelView{Price: lvl.Price, Qty: lvl.Qty, Orders: lvl.Orders}
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
