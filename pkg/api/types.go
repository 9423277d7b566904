package api

// API response types for REST endpoints and WebSocket messages

// GoodInfo represents a good's market state
type GoodInfo struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	BasePrice    int64   `json:"basePrice"`    // immutable launch price
	CurrentPrice int64   `json:"currentPrice"` // live reference price
	Volatility   float64 `json:"volatility"`
	TotalVolume  int64   `json:"totalVolume"` // lifetime units traded
}

// QueueEntry is one resting order as seen from outside: owner and
// remaining quantity only, in queue (arrival) order.
type QueueEntry struct {
	OrderID   string `json:"orderId"`
	Owner     string `json:"owner"`
	Price     int64  `json:"price"`
	Remaining int64  `json:"remaining"`
}

// BookSnapshot represents current order book state for one good.
// Both sides are in arrival order, head first — matching is
// head-of-queue FIFO, not price priority.
type BookSnapshot struct {
	Good      string       `json:"good"`
	Bids      []QueueEntry `json:"bids"`
	Asks      []QueueEntry `json:"asks"`
	Timestamp int64        `json:"timestamp"` // Unix milliseconds
}

// TradeInfo represents a settled trade
type TradeInfo struct {
	ID        string `json:"id"`
	Good      string `json:"good"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Qty       int64  `json:"qty"`
	Price     int64  `json:"price"`
	Tax       int64  `json:"tax"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// ParticipantInfo represents a participant's ledger state
type ParticipantInfo struct {
	ID        string           `json:"id"`
	Balance   int64            `json:"balance"`
	Inventory map[string]int64 `json:"inventory"`
}

// OrderInfo represents one of a participant's orders
type OrderInfo struct {
	ID        string `json:"id"`
	Good      string `json:"good"`
	Side      string `json:"side"`
	Price     int64  `json:"price"`
	Qty       int64  `json:"qty"`
	Filled    int64  `json:"filled"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}

// PlaceOrderRequest is the POST /orders payload
type PlaceOrderRequest struct {
	Participant string `json:"participant"`
	Good        string `json:"good"`
	Side        string `json:"side"` // "buy" or "sell"
	Qty         int64  `json:"qty"`
	Price       int64  `json:"price"`
}

// PlaceOrderResponse returns the accepted order's handle
type PlaceOrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// CancelOrderRequest is the POST /orders/cancel payload
type CancelOrderRequest struct {
	Participant string `json:"participant"`
	OrderID     string `json:"orderId"`
}

// PriceEvent is broadcast on the "prices" channel after re-pricing
type PriceEvent struct {
	Channel string `json:"channel"`
	Good    string `json:"good"`
	Price   int64  `json:"price"`
}

// TradeEvent is broadcast on "trades" and "trades:<good>" channels
type TradeEvent struct {
	Channel string    `json:"channel"`
	Trade   TradeInfo `json:"trade"`
}

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Error string `json:"error"`
}
