// Package book implements the per-good order book.
//
// The book is a pair of FIFO queues, one per side, in strict arrival
// order. Matching only ever inspects the head of each queue: a cross
// executes when head(bids).Price >= head(asks).Price, regardless of
// better-priced orders deeper in the queue. This head-only semantic is
// a deliberate simplification versus a price-priority book — switching
// to price priority would change observable trade prices, so it must
// not be "fixed".
package book

import "sync"

// Book holds the resting orders for one good. The matching engine
// serializes all mutation of a good under its own per-good lock; the
// book's mutex additionally protects read-only snapshots taken by the
// API layer while matching is in flight.
type Book struct {
	mu sync.RWMutex

	bids []*Order // arrival order, head at index 0
	asks []*Order

	index map[string]Side // order ID -> side, for cancellation
}

func New() *Book {
	return &Book{
		index: make(map[string]Side),
	}
}

// Insert appends the order to the tail of its side's queue. O(1).
func (b *Book) Insert(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o.Side == Buy {
		b.bids = append(b.bids, o)
	} else {
		b.asks = append(b.asks, o)
	}
	b.index[o.ID] = o.Side
}

// HeadBid returns the longest-resting bid, or nil if the side is empty.
func (b *Book) HeadBid() *Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 {
		return nil
	}
	return b.bids[0]
}

// HeadAsk returns the longest-resting ask, or nil if the side is empty.
func (b *Book) HeadAsk() *Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 {
		return nil
	}
	return b.asks[0]
}

// RemoveHead pops the head of the given side. No-op on an empty side.
func (b *Book) RemoveHead(side Side) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if side == Buy {
		if len(b.bids) == 0 {
			return
		}
		delete(b.index, b.bids[0].ID)
		b.bids = b.bids[1:]
	} else {
		if len(b.asks) == 0 {
			return
		}
		delete(b.index, b.asks[0].ID)
		b.asks = b.asks[1:]
	}
}

// Cancel removes the order with the given ID from its queue and returns
// it. Returns nil, false if the order is not resting in this book.
// O(n) scan of one side; acceptable at this system's scale.
func (b *Book) Cancel(id string) (*Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	side, ok := b.index[id]
	if !ok {
		return nil, false
	}

	queue := &b.bids
	if side == Sell {
		queue = &b.asks
	}
	for i, o := range *queue {
		if o.ID == id {
			*queue = append((*queue)[:i], (*queue)[i+1:]...)
			delete(b.index, id)
			return o, true
		}
	}

	// Index said present but the scan missed it; treat as not found.
	delete(b.index, id)
	return nil, false
}

// Pressure returns the sum of remaining quantities on one side. Feeds
// the price model.
func (b *Book) Pressure(side Side) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sum int64
	if side == Buy {
		for _, o := range b.bids {
			sum += o.Remaining()
		}
	} else {
		for _, o := range b.asks {
			sum += o.Remaining()
		}
	}
	return sum
}

// Depth returns the number of resting orders per side.
func (b *Book) Depth() (bids, asks int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bids), len(b.asks)
}

// Snapshot returns copies of all resting orders on one side in queue
// order. Used by the API layer; the copies are safe to read without
// holding any lock.
func (b *Book) Snapshot(side Side) []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	src := b.bids
	if side == Sell {
		src = b.asks
	}
	out := make([]Order, len(src))
	for i, o := range src {
		out[i] = *o
	}
	return out
}
