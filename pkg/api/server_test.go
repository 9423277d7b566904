package api

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uhyunpark/bazaar/params"
	"github.com/uhyunpark/bazaar/pkg/market"
	"github.com/uhyunpark/bazaar/pkg/util"
)

func newTestServer(t *testing.T) (*httptest.Server, *market.Engine) {
	t.Helper()
	cfg := params.Market{
		TaxRateBps:   100,
		QuotaWindow:  4 * time.Hour,
		QuotaCap:     1000,
		TickInterval: time.Second,
	}
	clock := util.NewManualClock(time.Unix(1_700_000_000, 0))
	engine := market.NewEngine(cfg, clock, market.NewPriceModel(rand.New(rand.NewSource(1))), zap.NewNop(), nil)

	require.NoError(t, engine.RegisterGood("wheat", "Wheat", 120, 0.05))
	require.NoError(t, engine.RegisterParticipant("alice", 100_000))
	require.NoError(t, engine.RegisterParticipant("bob", 0))
	l, err := engine.Ledger("bob")
	require.NoError(t, err)
	l.DepositGoods("wheat", 50)

	srv := httptest.NewServer(NewServer(engine, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv, engine
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body, out interface{}) int {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGetGoods(t *testing.T) {
	srv, _ := newTestServer(t)

	var goods []GoodInfo
	status := getJSON(t, srv.URL+"/api/v1/goods", &goods)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, goods, 1)
	require.Equal(t, "wheat", goods[0].ID)
	require.Equal(t, int64(120), goods[0].CurrentPrice)
}

func TestGetGoodNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	status := getJSON(t, srv.URL+"/api/v1/goods/gold", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestPlaceAndCancelOrder(t *testing.T) {
	srv, engine := newTestServer(t)

	var placed PlaceOrderResponse
	status := postJSON(t, srv.URL+"/api/v1/orders", PlaceOrderRequest{
		Participant: "alice", Good: "wheat", Side: "buy", Qty: 5, Price: 110,
	}, &placed)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, placed.OrderID)

	// The escrow is visible through the participant endpoint.
	var info ParticipantInfo
	status = getJSON(t, srv.URL+"/api/v1/participants/alice", &info)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(100_000-550), info.Balance)

	// And the order through the book snapshot.
	var snap BookSnapshot
	status = getJSON(t, srv.URL+"/api/v1/goods/wheat/book", &snap)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, snap.Bids, 1)
	require.Equal(t, int64(5), snap.Bids[0].Remaining)

	status = postJSON(t, srv.URL+"/api/v1/orders/cancel", CancelOrderRequest{
		Participant: "alice", OrderID: placed.OrderID,
	}, nil)
	require.Equal(t, http.StatusOK, status)

	l, err := engine.Ledger("alice")
	require.NoError(t, err)
	require.Equal(t, int64(100_000), l.Balance())
}

func TestOrderFlowToTrade(t *testing.T) {
	srv, _ := newTestServer(t)

	status := postJSON(t, srv.URL+"/api/v1/orders", PlaceOrderRequest{
		Participant: "bob", Good: "wheat", Side: "sell", Qty: 10, Price: 100,
	}, nil)
	require.Equal(t, http.StatusOK, status)
	status = postJSON(t, srv.URL+"/api/v1/orders", PlaceOrderRequest{
		Participant: "alice", Good: "wheat", Side: "buy", Qty: 10, Price: 100,
	}, nil)
	require.Equal(t, http.StatusOK, status)

	var trades []TradeInfo
	status = getJSON(t, srv.URL+"/api/v1/trades?limit=5", &trades)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, trades, 1)
	require.Equal(t, int64(100), trades[0].Price)
	require.Equal(t, "alice", trades[0].Buyer)
	require.Equal(t, "bob", trades[0].Seller)

	var byGood []TradeInfo
	status = getJSON(t, srv.URL+"/api/v1/goods/wheat/trades", &byGood)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, byGood, 1)
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		req        PlaceOrderRequest
		wantStatus int
	}{
		{
			name:       "unknown participant",
			req:        PlaceOrderRequest{Participant: "ghost", Good: "wheat", Side: "buy", Qty: 1, Price: 1},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown good",
			req:        PlaceOrderRequest{Participant: "alice", Good: "gold", Side: "buy", Qty: 1, Price: 1},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "insufficient funds",
			req:        PlaceOrderRequest{Participant: "bob", Good: "wheat", Side: "buy", Qty: 100, Price: 1000},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "insufficient inventory",
			req:        PlaceOrderRequest{Participant: "alice", Good: "wheat", Side: "sell", Qty: 1, Price: 100},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid quantity",
			req:        PlaceOrderRequest{Participant: "alice", Good: "wheat", Side: "buy", Qty: 0, Price: 100},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid side",
			req:        PlaceOrderRequest{Participant: "alice", Good: "wheat", Side: "hold", Qty: 1, Price: 100},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp ErrorResponse
			status := postJSON(t, srv.URL+"/api/v1/orders", tt.req, &errResp)
			require.Equal(t, tt.wantStatus, status)
			require.NotEmpty(t, errResp.Error)
		})
	}
}

func TestQuotaMapsToTooManyRequests(t *testing.T) {
	srv, engine := newTestServer(t)

	l, err := engine.Ledger("bob")
	require.NoError(t, err)
	l.DepositGoods("wheat", 2000)

	status := postJSON(t, srv.URL+"/api/v1/orders", PlaceOrderRequest{
		Participant: "bob", Good: "wheat", Side: "sell", Qty: 1000, Price: 10,
	}, nil)
	require.Equal(t, http.StatusOK, status)
	status = postJSON(t, srv.URL+"/api/v1/orders", PlaceOrderRequest{
		Participant: "alice", Good: "wheat", Side: "buy", Qty: 1000, Price: 10,
	}, nil)
	require.Equal(t, http.StatusOK, status)

	status = postJSON(t, srv.URL+"/api/v1/orders", PlaceOrderRequest{
		Participant: "alice", Good: "wheat", Side: "buy", Qty: 1, Price: 10,
	}, nil)
	require.Equal(t, http.StatusTooManyRequests, status)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	status := getJSON(t, srv.URL+"/health", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestPriceHistoryEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)
	for i := 0; i < 5; i++ {
		engine.Tick()
	}

	var history []int64
	status := getJSON(t, srv.URL+"/api/v1/goods/wheat/history", &history)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, history)
	require.Equal(t, int64(120), history[0], "history starts at the base price")

	var tail []int64
	status = getJSON(t, srv.URL+"/api/v1/goods/wheat/history?limit=2", &tail)
	require.Equal(t, http.StatusOK, status)
	require.LessOrEqual(t, len(tail), 2)
}
