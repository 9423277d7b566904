package market

import (
	"sync"
	"time"
)

// Trade is an immutable record of a settled fill. Appended to the
// TradeLog at settlement, never mutated or removed.
type Trade struct {
	ID     string
	Buyer  string
	Seller string
	Good   string
	Qty    int64
	Price  int64 // unit price actually paid
	Tax    int64 // withheld from the seller's gross proceeds
	At     time.Time
}

// TradeLog is the append-only, time-ordered record of settled trades.
// Queries return copies; callers never see the backing slice.
type TradeLog struct {
	mu     sync.RWMutex
	trades []Trade
}

func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

func (l *TradeLog) Append(t Trade) {
	l.mu.Lock()
	l.trades = append(l.trades, t)
	l.mu.Unlock()
}

// Recent returns up to limit trades, most recent first.
func (l *TradeLog) Recent(limit int) []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.trades)
	if limit > n || limit <= 0 {
		limit = n
	}
	out := make([]Trade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.trades[i])
	}
	return out
}

// ByGood returns up to limit trades for one good, most recent first.
func (l *TradeLog) ByGood(good string, limit int) []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Trade
	for i := len(l.trades) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if l.trades[i].Good == good {
			out = append(out, l.trades[i])
		}
	}
	return out
}

func (l *TradeLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// TotalTax sums tax withheld across all recorded trades.
func (l *TradeLog) TotalTax() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var sum int64
	for _, t := range l.trades {
		sum += t.Tax
	}
	return sum
}
