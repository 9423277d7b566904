// Package pricing converts aggregate order pressure into price moves.
package pricing

import (
	"math"
	"math/rand"
	"sync"
)

// maxStep is the hard per-tick price cap (fraction of current price),
// independent of a good's volatility. Even with extreme one-sided
// pressure a single update cannot move the price more than this.
const maxStep = 0.10

// idleDrift is the symmetric random walk applied when both sides of
// the book are empty. Models idle noise, not demand.
const idleDrift = 0.01

// Model computes new reference prices. The random source is injected
// so idle drift is reproducible in tests; the mutex exists because
// *rand.Rand is not safe for concurrent use and Next is called from
// every good's tick.
type Model struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewModel(rng *rand.Rand) *Model {
	return &Model{rng: rng}
}

// Next returns the new price for a good given its current price,
// volatility, and the remaining quantity on each side of its book.
//
// With no pressure on either side the price drifts within ±1%.
// Otherwise the move is volatility scaled by the pressure imbalance
// ratio (buy-sell)/(buy+sell), which lies in [-1, 1]. The result is
// clamped to ±10% of the current price, rounded to the nearest whole
// currency unit, and floored at 1.
func (m *Model) Next(current int64, volatility float64, buyPressure, sellPressure int64) int64 {
	var fluctuation float64
	if buyPressure == 0 && sellPressure == 0 {
		m.mu.Lock()
		fluctuation = (m.rng.Float64()*2 - 1) * idleDrift
		m.mu.Unlock()
	} else {
		ratio := float64(buyPressure-sellPressure) / float64(buyPressure+sellPressure)
		fluctuation = ratio * volatility
	}

	candidate := float64(current) * (1 + fluctuation)

	lo := float64(current) * (1 - maxStep)
	hi := float64(current) * (1 + maxStep)
	if candidate < lo {
		candidate = lo
	}
	if candidate > hi {
		candidate = hi
	}

	next := int64(math.Round(candidate))
	if next < 1 {
		next = 1
	}
	return next
}
