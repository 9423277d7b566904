// Package ledger tracks per-participant currency and inventory.
//
// A participant's ledger can be touched concurrently from several
// goods' matching loops (a participant trades multiple goods), so
// every operation takes the participant's own mutex. The matching
// engine acquires ledger locks only while holding a per-good lock,
// and never holds two ledger locks at once, so lock ordering is
// trivially consistent.
package ledger

import (
	"fmt"
	"sync"

	"github.com/uhyunpark/bazaar/pkg/market/book"
)

// Participant owns a currency balance and a goods inventory. Balances
// never go negative: Debit and WithdrawGoods fail without mutating
// anything when funds or stock are short.
type Participant struct {
	ID string

	mu        sync.Mutex
	balance   int64            // smallest currency units
	inventory map[string]int64 // good ID -> quantity held

	// active is an index of resting orders for display; the order book
	// is the authoritative owner of order state.
	active map[string]*book.Order
	closed []*book.Order // filled or cancelled orders, oldest first
}

func NewParticipant(id string, openingBalance int64) *Participant {
	return &Participant{
		ID:        id,
		balance:   openingBalance,
		inventory: make(map[string]int64),
		active:    make(map[string]*book.Order),
	}
}

// Credit adds amount to the balance. amount must be positive.
func (p *Participant) Credit(amount int64) {
	if amount <= 0 {
		return
	}
	p.mu.Lock()
	p.balance += amount
	p.mu.Unlock()
}

// Debit removes amount from the balance. Fails, mutating nothing, if
// amount exceeds the balance.
func (p *Participant) Debit(amount int64) bool {
	if amount <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if amount > p.balance {
		return false
	}
	p.balance -= amount
	return true
}

// DepositGoods adds qty units of a good to the inventory.
func (p *Participant) DepositGoods(good string, qty int64) {
	if qty <= 0 {
		return
	}
	p.mu.Lock()
	p.inventory[good] += qty
	p.mu.Unlock()
}

// WithdrawGoods removes qty units of a good. Fails, mutating nothing,
// if the participant holds fewer than qty. The inventory entry is
// deleted when it reaches zero.
func (p *Participant) WithdrawGoods(good string, qty int64) bool {
	if qty <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	held := p.inventory[good]
	if qty > held {
		return false
	}
	if held == qty {
		delete(p.inventory, good)
	} else {
		p.inventory[good] = held - qty
	}
	return true
}

// Balance returns the free (non-escrowed) currency balance.
func (p *Participant) Balance() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// Holding returns the quantity of one good currently held.
func (p *Participant) Holding(good string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inventory[good]
}

// Inventory returns a copy of the full inventory map.
func (p *Participant) Inventory() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int64, len(p.inventory))
	for g, q := range p.inventory {
		out[g] = q
	}
	return out
}

// TrackOrder records a newly placed order in the active index.
func (p *Participant) TrackOrder(o *book.Order) {
	p.mu.Lock()
	p.active[o.ID] = o
	p.mu.Unlock()
}

// ActiveOrder looks up a resting order by ID.
func (p *Participant) ActiveOrder(id string) (*book.Order, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.active[id]
	return o, ok
}

// CloseOrder moves an order from the active index to the closed
// history. No-op if the order was never tracked.
func (p *Participant) CloseOrder(o *book.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[o.ID]; !ok {
		return
	}
	delete(p.active, o.ID)
	p.closed = append(p.closed, o)
}

// OpenOrders returns copies of all resting orders, unordered.
func (p *Participant) OpenOrders() []book.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]book.Order, 0, len(p.active))
	for _, o := range p.active {
		out = append(out, *o)
	}
	return out
}

// ClosedOrders returns copies of filled/cancelled orders, oldest first.
func (p *Participant) ClosedOrders() []book.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]book.Order, len(p.closed))
	for i, o := range p.closed {
		out[i] = *o
	}
	return out
}

// Validate checks ledger invariants.
func (p *Participant) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balance < 0 {
		return fmt.Errorf("negative balance: %d", p.balance)
	}
	for g, q := range p.inventory {
		if q <= 0 {
			return fmt.Errorf("non-positive inventory for %s: %d", g, q)
		}
	}
	return nil
}
