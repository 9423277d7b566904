// Package api is the REST/WebSocket host surface over the matching
// engine. It owns no market state: every handler delegates to the
// engine's public operations and maps the engine's error taxonomy to
// HTTP status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/bazaar/pkg/market"
)

// Server handles REST API and WebSocket connections
type Server struct {
	engine *market.Engine
	router *mux.Router
	hub    *Hub
	logger *zap.Logger
}

// NewServer creates a new API server and wires the engine's trade and
// price hooks into the WebSocket hub.
func NewServer(engine *market.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		logger: logger,
	}

	engine.OnTrade(func(t market.Trade) {
		ev := TradeEvent{Channel: "trades", Trade: toTradeInfo(t)}
		s.hub.BroadcastToChannel("trades", ev)
		ev.Channel = "trades:" + t.Good
		s.hub.BroadcastToChannel(ev.Channel, ev)
	})
	engine.OnPrice(func(good string, price int64) {
		s.hub.BroadcastToChannel("prices", PriceEvent{Channel: "prices", Good: good, Price: price})
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Good endpoints
	api.HandleFunc("/goods", s.handleGetGoods).Methods("GET")
	api.HandleFunc("/goods/{id}", s.handleGetGood).Methods("GET")
	api.HandleFunc("/goods/{id}/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/goods/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/goods/{id}/trades", s.handleGetGoodTrades).Methods("GET")

	// Participant endpoints
	api.HandleFunc("/participants/{id}", s.handleGetParticipant).Methods("GET")
	api.HandleFunc("/participants/{id}/orders", s.handleGetOrders).Methods("GET")

	// Trades
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")

	// Order submission
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router without starting a listener. Used by
// tests and by hosts that manage their own http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})
	handler := c.Handler(s.router)

	s.logger.Info("api_server_starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetGoods(w http.ResponseWriter, r *http.Request) {
	goods := s.engine.Goods()
	out := make([]GoodInfo, len(goods))
	for i, g := range goods {
		out[i] = toGoodInfo(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGood(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	g, err := s.engine.GoodSnapshotByID(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoodInfo(g))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	bids, asks, err := s.engine.BookSnapshot(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap := BookSnapshot{
		Good:      id,
		Bids:      toQueueEntries(bids),
		Asks:      toQueueEntries(asks),
		Timestamp: time.Now().UnixMilli(),
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	history, err := s.engine.PriceHistory(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if limit := queryLimit(r, 0); limit > 0 && limit < len(history) {
		history = history[len(history)-limit:]
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleGetGoodTrades(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.engine.GoodSnapshotByID(id); err != nil {
		s.writeError(w, err)
		return
	}
	trades := s.engine.TradesByGood(id, queryLimit(r, 50))
	writeJSON(w, http.StatusOK, toTradeInfos(trades))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.engine.RecentTrades(queryLimit(r, 50))
	writeJSON(w, http.StatusOK, toTradeInfos(trades))
}

func (s *Server) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.engine.Ledger(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParticipantInfo{
		ID:        id,
		Balance:   p.Balance(),
		Inventory: p.Inventory(),
	})
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.engine.Ledger(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	open := p.OpenOrders()
	out := make([]OrderInfo, len(open))
	for i, o := range open {
		out[i] = toOrderInfo(o)
	}
	if r.URL.Query().Get("closed") == "true" {
		for _, o := range p.ClosedOrders() {
			out = append(out, toOrderInfo(o))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}

	var o *market.Order
	var err error
	switch req.Side {
	case "buy":
		o, err = s.engine.PlaceBuy(req.Participant, req.Good, req.Qty, req.Price)
	case "sell":
		o, err = s.engine.PlaceSell(req.Participant, req.Good, req.Qty, req.Price)
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "side must be buy or sell"})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlaceOrderResponse{OrderID: o.ID, Status: o.Status.String()})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}
	if err := s.engine.Cancel(req.Participant, req.OrderID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

// writeError maps the engine's error taxonomy to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, market.ErrGoodNotFound),
		errors.Is(err, market.ErrParticipantNotFound),
		errors.Is(err, market.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrInsufficientFunds),
		errors.Is(err, market.ErrInsufficientInventory):
		status = http.StatusConflict
	case errors.Is(err, market.ErrQuotaExceeded):
		status = http.StatusTooManyRequests
	case errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, market.ErrAlreadyRegistered):
		status = http.StatusConflict
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func toGoodInfo(g market.GoodSnapshot) GoodInfo {
	return GoodInfo{
		ID:           g.ID,
		Name:         g.Name,
		BasePrice:    g.BasePrice,
		CurrentPrice: g.CurrentPrice,
		Volatility:   g.Volatility,
		TotalVolume:  g.TotalVolume,
	}
}

func toQueueEntries(orders []market.Order) []QueueEntry {
	out := make([]QueueEntry, len(orders))
	for i, o := range orders {
		out[i] = QueueEntry{
			OrderID:   o.ID,
			Owner:     o.Owner,
			Price:     o.Price,
			Remaining: o.Remaining(),
		}
	}
	return out
}

func toTradeInfo(t market.Trade) TradeInfo {
	return TradeInfo{
		ID:        t.ID,
		Good:      t.Good,
		Buyer:     t.Buyer,
		Seller:    t.Seller,
		Qty:       t.Qty,
		Price:     t.Price,
		Tax:       t.Tax,
		Timestamp: t.At.UnixMilli(),
	}
}

func toTradeInfos(trades []market.Trade) []TradeInfo {
	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = toTradeInfo(t)
	}
	return out
}

func toOrderInfo(o market.Order) OrderInfo {
	return OrderInfo{
		ID:        o.ID,
		Good:      o.Good,
		Side:      o.Side.String(),
		Price:     o.Price,
		Qty:       o.Qty,
		Filled:    o.Filled,
		Status:    o.Status.String(),
		CreatedAt: o.CreatedAt,
	}
}
