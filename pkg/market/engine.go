// Package market implements the continuous double-auction core:
// order validation, escrow, head-of-queue matching, settlement with
// tax, quota enforcement, and pressure-driven re-pricing.
package market

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/bazaar/params"
	"github.com/uhyunpark/bazaar/pkg/market/book"
	"github.com/uhyunpark/bazaar/pkg/market/ledger"
	"github.com/uhyunpark/bazaar/pkg/market/pricing"
	"github.com/uhyunpark/bazaar/pkg/market/quota"
	"github.com/uhyunpark/bazaar/pkg/util"
)

// Journal receives every settled trade. Implementations are audit
// sinks only; the engine never reads trades back.
type Journal interface {
	AppendTrade(t Trade) error
}

// goodState bundles one good with its order book. Its mutex serializes
// the full place -> match -> settle path for the good; ledger locks
// nest inside it. Different goods never interact, so the lock is
// per-good rather than global.
type goodState struct {
	mu   sync.Mutex
	good *Good
	book *book.Book
}

// Engine orchestrates the order books, ledgers, rate limiter, and
// price model. It is the sole mutator of ledger balances and order
// fill state.
type Engine struct {
	clock   util.Clock
	logger  *zap.Logger
	prices  *pricing.Model
	limiter *quota.Limiter
	trades  *TradeLog
	journal Journal // nil disables journaling

	taxRateBps int64

	mu           sync.RWMutex // guards the two registries
	goods        map[string]*goodState
	participants map[string]*ledger.Participant

	seq          atomic.Int64 // arrival sequence for tie-breaking
	taxCollected atomic.Int64

	onTrade func(Trade)                    // optional, set before serving traffic
	onPrice func(good string, price int64) // optional, set before serving traffic
}

// NewEngine builds an engine around a seeded price model. journal may
// be nil to disable the audit journal.
func NewEngine(cfg params.Market, clock util.Clock, prices *pricing.Model, logger *zap.Logger, journal Journal) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		clock:        clock,
		logger:       logger,
		prices:       prices,
		limiter:      quota.NewLimiter(clock, cfg.QuotaWindow, cfg.QuotaCap),
		trades:       NewTradeLog(),
		journal:      journal,
		taxRateBps:   cfg.TaxRateBps,
		goods:        make(map[string]*goodState),
		participants: make(map[string]*ledger.Participant),
	}
}

// OnTrade registers a callback invoked after every settlement. Must be
// set before any orders flow; the callback runs inside the good's lock
// and must not call back into the engine.
func (e *Engine) OnTrade(fn func(Trade)) { e.onTrade = fn }

// OnPrice registers a callback invoked after every re-pricing.
func (e *Engine) OnPrice(fn func(good string, price int64)) { e.onPrice = fn }

// RegisterGood adds a tradable good at its base price.
func (e *Engine) RegisterGood(id, name string, basePrice int64, volatility float64) error {
	if id == "" || basePrice < 1 {
		return fmt.Errorf("register good %q: %w", id, ErrInvalidPrice)
	}
	if volatility < 0 || volatility >= 1 {
		return fmt.Errorf("register good %q: volatility %v out of range", id, volatility)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.goods[id]; exists {
		return fmt.Errorf("good %s: %w", id, ErrAlreadyRegistered)
	}
	e.goods[id] = &goodState{
		good: &Good{
			ID:           id,
			Name:         name,
			BasePrice:    basePrice,
			CurrentPrice: basePrice,
			Volatility:   volatility,
			History:      []int64{basePrice},
		},
		book: book.New(),
	}
	e.logger.Info("good_registered", zap.String("good", id), zap.Int64("base_price", basePrice))
	return nil
}

// RegisterParticipant adds a participant with an opening balance.
func (e *Engine) RegisterParticipant(id string, openingBalance int64) error {
	if id == "" || openingBalance < 0 {
		return fmt.Errorf("register participant %q: invalid arguments", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.participants[id]; exists {
		return fmt.Errorf("participant %s: %w", id, ErrAlreadyRegistered)
	}
	e.participants[id] = ledger.NewParticipant(id, openingBalance)
	e.logger.Info("participant_registered", zap.String("participant", id), zap.Int64("balance", openingBalance))
	return nil
}

func (e *Engine) goodState(id string) (*goodState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	gs, ok := e.goods[id]
	if !ok {
		return nil, fmt.Errorf("good %s: %w", id, ErrGoodNotFound)
	}
	return gs, nil
}

func (e *Engine) participant(id string) (*ledger.Participant, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.participants[id]
	if !ok {
		return nil, fmt.Errorf("participant %s: %w", id, ErrParticipantNotFound)
	}
	return p, nil
}

// PlaceBuy submits a limit buy. The full notional qty*price is debited
// up front (escrow); the quota is checked against the requested
// quantity before the order enters the book. On any rejection the
// escrow is returned and no state changes.
func (e *Engine) PlaceBuy(participant, good string, qty, price int64) (*book.Order, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	p, err := e.participant(participant)
	if err != nil {
		return nil, err
	}
	gs, err := e.goodState(good)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	notional := qty * price
	if !p.Debit(notional) {
		return nil, fmt.Errorf("buy %d %s @ %d: %w", qty, good, price, ErrInsufficientFunds)
	}
	if !e.limiter.Allow(participant, good, qty) {
		p.Credit(notional) // return escrow
		return nil, fmt.Errorf("buy %d %s: %w", qty, good, ErrQuotaExceeded)
	}

	o := e.newOrder(participant, good, book.Buy, qty, price)
	gs.book.Insert(o)
	p.TrackOrder(o)
	e.logger.Debug("order_placed",
		zap.String("order", o.ID), zap.String("side", "buy"),
		zap.String("good", good), zap.Int64("qty", qty), zap.Int64("price", price))

	e.matchLocked(gs)
	e.refreshPriceLocked(gs)
	return o, nil
}

// PlaceSell submits a limit sell. The goods are withdrawn from the
// seller's inventory up front (escrow).
func (e *Engine) PlaceSell(participant, good string, qty, price int64) (*book.Order, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	p, err := e.participant(participant)
	if err != nil {
		return nil, err
	}
	gs, err := e.goodState(good)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !p.WithdrawGoods(good, qty) {
		return nil, fmt.Errorf("sell %d %s: %w", qty, good, ErrInsufficientInventory)
	}

	o := e.newOrder(participant, good, book.Sell, qty, price)
	gs.book.Insert(o)
	p.TrackOrder(o)
	e.logger.Debug("order_placed",
		zap.String("order", o.ID), zap.String("side", "sell"),
		zap.String("good", good), zap.Int64("qty", qty), zap.Int64("price", price))

	e.matchLocked(gs)
	e.refreshPriceLocked(gs)
	return o, nil
}

// Cancel removes a resting order and returns the unfilled remainder's
// escrow: currency for a buy, goods for a sell. No-op with
// ErrOrderNotFound if the order is not among the participant's active
// orders (already filled, already cancelled, or never theirs).
func (e *Engine) Cancel(participant, orderID string) error {
	p, err := e.participant(participant)
	if err != nil {
		return err
	}
	o, ok := p.ActiveOrder(orderID)
	if !ok {
		return fmt.Errorf("cancel %s: %w", orderID, ErrOrderNotFound)
	}
	gs, err := e.goodState(o.Good)
	if err != nil {
		return err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	// Re-check under the good lock: the order may have completed
	// between the index lookup and here.
	removed, ok := gs.book.Cancel(orderID)
	if !ok {
		return fmt.Errorf("cancel %s: %w", orderID, ErrOrderNotFound)
	}

	remaining := removed.Remaining()
	if remaining > 0 {
		if removed.Side == book.Buy {
			p.Credit(remaining * removed.Price)
		} else {
			p.DepositGoods(removed.Good, remaining)
		}
	}
	removed.Status = book.OrderCancelled
	p.CloseOrder(removed)

	e.logger.Info("order_cancelled",
		zap.String("order", orderID), zap.String("good", removed.Good),
		zap.Int64("returned_qty", remaining))
	return nil
}

// Tick runs one matching pass and a price refresh for every good.
// Callable on any cadence by the host. Goods are visited in ID order
// so a seeded price model yields reproducible drift.
func (e *Engine) Tick() {
	e.mu.RLock()
	states := make([]*goodState, 0, len(e.goods))
	for _, gs := range e.goods {
		states = append(states, gs)
	}
	e.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].good.ID < states[j].good.ID })

	for _, gs := range states {
		gs.mu.Lock()
		e.matchLocked(gs)
		e.refreshPriceLocked(gs)
		gs.mu.Unlock()
	}
}

func (e *Engine) newOrder(owner, good string, side book.Side, qty, price int64) *book.Order {
	return &book.Order{
		ID:        uuid.NewString(),
		Owner:     owner,
		Good:      good,
		Side:      side,
		Price:     price,
		Qty:       qty,
		Seq:       e.seq.Add(1),
		CreatedAt: e.clock.Now().UnixMilli(),
	}
}

// matchLocked drives the matching loop until no cross remains. Caller
// holds gs.mu. Only the two queue heads are ever considered; the loop
// terminates when a side empties or head(bids).Price < head(asks).Price.
func (e *Engine) matchLocked(gs *goodState) {
	for {
		b := gs.book.HeadBid()
		a := gs.book.HeadAsk()
		if b == nil || a == nil {
			break
		}
		if b.Price < a.Price {
			break
		}

		qty := min(b.Remaining(), a.Remaining())

		// The longer-resting order sets the trade price (price-time
		// fairness for the side that has been waiting).
		tradePrice := b.Price
		if a.Seq < b.Seq {
			tradePrice = a.Price
		}

		b.Filled += qty
		a.Filled += qty
		if !b.Complete() {
			b.Status = book.OrderPartiallyFilled
		}
		if !a.Complete() {
			a.Status = book.OrderPartiallyFilled
		}

		// Registered participants are never removed, so these lookups
		// cannot fail for orders the engine itself admitted.
		buyer, _ := e.participant(b.Owner)
		seller, _ := e.participant(a.Owner)

		gross := tradePrice * qty
		tax := gross * e.taxRateBps / 10000
		seller.Credit(gross - tax)
		e.taxCollected.Add(tax)

		// The buyer escrowed qty*b.Price; anything above the trade
		// price is returned.
		if refund := (b.Price - tradePrice) * qty; refund > 0 {
			buyer.Credit(refund)
		}
		buyer.DepositGoods(gs.good.ID, qty)
		e.limiter.Record(b.Owner, gs.good.ID, qty)

		trade := Trade{
			ID:     uuid.NewString(),
			Buyer:  b.Owner,
			Seller: a.Owner,
			Good:   gs.good.ID,
			Qty:    qty,
			Price:  tradePrice,
			Tax:    tax,
			At:     e.clock.Now(),
		}
		e.trades.Append(trade)
		gs.good.TotalVolume += qty

		if e.journal != nil {
			if err := e.journal.AppendTrade(trade); err != nil {
				e.logger.Warn("journal_append_failed", zap.String("trade", trade.ID), zap.Error(err))
			}
		}
		if e.onTrade != nil {
			e.onTrade(trade)
		}
		e.logger.Info("fill",
			zap.String("good", gs.good.ID),
			zap.String("buyer", b.Owner), zap.String("seller", a.Owner),
			zap.Int64("qty", qty), zap.Int64("price", tradePrice), zap.Int64("tax", tax))

		if b.Complete() {
			b.Status = book.OrderFilled
			gs.book.RemoveHead(book.Buy)
			buyer.CloseOrder(b)
		}
		if a.Complete() {
			a.Status = book.OrderFilled
			gs.book.RemoveHead(book.Sell)
			seller.CloseOrder(a)
		}
	}
}

// refreshPriceLocked recomputes the reference price from remaining
// pressure and appends it to the good's history. Caller holds gs.mu.
func (e *Engine) refreshPriceLocked(gs *goodState) {
	buyP := gs.book.Pressure(book.Buy)
	sellP := gs.book.Pressure(book.Sell)

	next := e.prices.Next(gs.good.CurrentPrice, gs.good.Volatility, buyP, sellP)
	if next == gs.good.CurrentPrice {
		return
	}
	gs.good.CurrentPrice = next
	gs.good.History = append(gs.good.History, next)

	if e.onPrice != nil {
		e.onPrice(gs.good.ID, next)
	}
	e.logger.Debug("price_update",
		zap.String("good", gs.good.ID), zap.Int64("price", next),
		zap.Int64("buy_pressure", buyP), zap.Int64("sell_pressure", sellP))
}

// ---- Read-only queries ----

// CurrentPrice returns the live reference price of a good.
func (e *Engine) CurrentPrice(good string) (int64, error) {
	gs, err := e.goodState(good)
	if err != nil {
		return 0, err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.good.CurrentPrice, nil
}

// PriceHistory returns a copy of a good's price history, oldest first.
func (e *Engine) PriceHistory(good string) ([]int64, error) {
	gs, err := e.goodState(good)
	if err != nil {
		return nil, err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	out := make([]int64, len(gs.good.History))
	copy(out, gs.good.History)
	return out, nil
}

// Goods returns snapshots of all registered goods, sorted by ID.
func (e *Engine) Goods() []GoodSnapshot {
	e.mu.RLock()
	states := make([]*goodState, 0, len(e.goods))
	for _, gs := range e.goods {
		states = append(states, gs)
	}
	e.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].good.ID < states[j].good.ID })

	out := make([]GoodSnapshot, 0, len(states))
	for _, gs := range states {
		gs.mu.Lock()
		out = append(out, GoodSnapshot{
			ID:           gs.good.ID,
			Name:         gs.good.Name,
			BasePrice:    gs.good.BasePrice,
			CurrentPrice: gs.good.CurrentPrice,
			Volatility:   gs.good.Volatility,
			TotalVolume:  gs.good.TotalVolume,
		})
		gs.mu.Unlock()
	}
	return out
}

// GoodSnapshotByID returns one good's snapshot.
func (e *Engine) GoodSnapshotByID(good string) (GoodSnapshot, error) {
	gs, err := e.goodState(good)
	if err != nil {
		return GoodSnapshot{}, err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return GoodSnapshot{
		ID:           gs.good.ID,
		Name:         gs.good.Name,
		BasePrice:    gs.good.BasePrice,
		CurrentPrice: gs.good.CurrentPrice,
		Volatility:   gs.good.Volatility,
		TotalVolume:  gs.good.TotalVolume,
	}, nil
}

// BookSnapshot returns copies of a good's resting orders in queue order.
func (e *Engine) BookSnapshot(good string) (bids, asks []book.Order, err error) {
	gs, err := e.goodState(good)
	if err != nil {
		return nil, nil, err
	}
	return gs.book.Snapshot(book.Buy), gs.book.Snapshot(book.Sell), nil
}

// RecentTrades returns up to limit trades, most recent first.
func (e *Engine) RecentTrades(limit int) []Trade {
	return e.trades.Recent(limit)
}

// TradesByGood returns up to limit trades for one good, most recent first.
func (e *Engine) TradesByGood(good string, limit int) []Trade {
	return e.trades.ByGood(good, limit)
}

// Ledger returns the ledger of a registered participant.
func (e *Engine) Ledger(id string) (*ledger.Participant, error) {
	return e.participant(id)
}

// QuotaUsed returns the quantity currently counted against a
// participant's quota for one good.
func (e *Engine) QuotaUsed(participant, good string) int64 {
	return e.limiter.Used(participant, good)
}

// TaxCollected returns total tax withheld since the engine started.
func (e *Engine) TaxCollected() int64 {
	return e.taxCollected.Load()
}
