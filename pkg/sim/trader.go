// Package sim drives the engine with randomized demo traffic. It only
// ever calls the engine's public operations, the same way an external
// host would.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/bazaar/pkg/market"
)

// Pool is a set of simulated traders placing randomized limit orders
// around each good's current price. The random source is seeded, so a
// fixed seed reproduces the same order flow.
type Pool struct {
	engine  *market.Engine
	rng     *rand.Rand
	traders []string
	logger  *zap.Logger
}

// NewPool registers numTraders participants and grants each an opening
// balance plus starting inventory in every registered good, so both
// sides of each book see flow from the start.
func NewPool(engine *market.Engine, numTraders int, seed int64, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	p := &Pool{
		engine: engine,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}

	goods := engine.Goods()
	for i := 0; i < numTraders; i++ {
		id := fmt.Sprintf("trader_%d", i+1)
		if err := engine.RegisterParticipant(id, 1_000_000); err != nil {
			return nil, err
		}
		l, err := engine.Ledger(id)
		if err != nil {
			return nil, err
		}
		for _, g := range goods {
			l.DepositGoods(g.ID, 200)
		}
		p.traders = append(p.traders, id)
	}

	logger.Info("sim_pool_ready", zap.Int("traders", numTraders), zap.Int64("seed", seed))
	return p, nil
}

// Run places one randomized action per interval until ctx is done.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Step()
		}
	}
}

// Step performs one random action: 90% place an order, 10% cancel one.
// Exposed so tests can drive the pool without a ticker.
func (p *Pool) Step() {
	goods := p.engine.Goods()
	if len(goods) == 0 || len(p.traders) == 0 {
		return
	}

	trader := p.traders[p.rng.Intn(len(p.traders))]
	good := goods[p.rng.Intn(len(goods))]

	if p.rng.Intn(100) < 10 {
		p.cancelRandom(trader)
		return
	}

	// Limit price around current price, ±5%.
	spread := good.CurrentPrice / 20
	if spread < 1 {
		spread = 1
	}
	price := good.CurrentPrice + p.rng.Int63n(2*spread+1) - spread
	if price < 1 {
		price = 1
	}
	qty := p.rng.Int63n(20) + 1

	var err error
	if p.rng.Intn(2) == 0 {
		_, err = p.engine.PlaceBuy(trader, good.ID, qty, price)
	} else {
		_, err = p.engine.PlaceSell(trader, good.ID, qty, price)
	}

	// Rejections are expected traffic: traders run out of stock,
	// currency, or quota all the time.
	if err != nil && !expectedRejection(err) {
		p.logger.Warn("sim_order_failed", zap.String("trader", trader), zap.Error(err))
	}
}

func (p *Pool) cancelRandom(trader string) {
	l, err := p.engine.Ledger(trader)
	if err != nil {
		return
	}
	open := l.OpenOrders()
	if len(open) == 0 {
		return
	}
	o := open[p.rng.Intn(len(open))]
	if err := p.engine.Cancel(trader, o.ID); err != nil && !errors.Is(err, market.ErrOrderNotFound) {
		p.logger.Warn("sim_cancel_failed", zap.String("order", o.ID), zap.Error(err))
	}
}

func expectedRejection(err error) bool {
	return errors.Is(err, market.ErrInsufficientFunds) ||
		errors.Is(err, market.ErrInsufficientInventory) ||
		errors.Is(err, market.ErrQuotaExceeded)
}
