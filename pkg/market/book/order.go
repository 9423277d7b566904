package book

// Side of the book an order rests on.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderStatus represents the lifecycle state of an order
type OrderStatus int8

const (
	OrderOpen OrderStatus = iota
	OrderPartiallyFilled
	OrderFilled
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderOpen:
		return "open"
	case OrderPartiallyFilled:
		return "partially_filled"
	case OrderFilled:
		return "filled"
	case OrderCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Order is a standing limit order for a good. Everything but Filled and
// Status is immutable after insertion; Filled only ever increases, and
// only the matching engine writes it.
type Order struct {
	ID    string // unique order ID
	Owner string // participant that owns this order
	Good  string // good being traded

	Side  Side
	Price int64 // limit price per unit, in smallest currency units
	Qty   int64 // total quantity (units of the good)

	Filled int64 // quantity filled so far
	Status OrderStatus

	// Seq is the engine-assigned arrival sequence, monotonic across all
	// orders. It is the only timestamp used for tie-breaking: the order
	// with the lower Seq has been resting longer and sets the trade
	// price when a cross executes.
	Seq int64

	CreatedAt int64 // Unix milliseconds, informational only
}

// Remaining returns unfilled quantity
func (o *Order) Remaining() int64 {
	return o.Qty - o.Filled
}

// Complete reports whether the order is fully filled.
func (o *Order) Complete() bool {
	return o.Filled >= o.Qty
}

// IsClosed returns true if order is no longer active
func (o *Order) IsClosed() bool {
	return o.Status == OrderFilled || o.Status == OrderCancelled
}
