package market

// Good is a tradable item type with a market-determined price. All
// prices are integers in the smallest currency denomination.
//
// Mutable fields (CurrentPrice, History, TotalVolume) are guarded by
// the owning good's engine lock; the engine is the sole mutator.
type Good struct {
	ID   string
	Name string

	// BasePrice is the immutable reference price the good launched at.
	BasePrice int64

	// CurrentPrice is the live reference price. Invariant: >= 1.
	CurrentPrice int64

	// Volatility bounds the per-update price move driven by order
	// pressure (fraction, typically 0.02-0.10). The ±10% per-tick hard
	// cap applies on top of it.
	Volatility float64

	// History holds past reference prices, append-only, oldest first.
	// The launch price is the first entry.
	History []int64

	// TotalVolume counts units traded over the good's lifetime.
	TotalVolume int64
}

// GoodSnapshot is a copy of a good's state safe to read without locks.
type GoodSnapshot struct {
	ID           string
	Name         string
	BasePrice    int64
	CurrentPrice int64
	Volatility   float64
	TotalVolume  int64
}
