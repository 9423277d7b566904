package pricing

import (
	"math/rand"
	"testing"
)

func TestNextPressureDirection(t *testing.T) {
	m := NewModel(rand.New(rand.NewSource(1)))

	tests := []struct {
		name         string
		current      int64
		volatility   float64
		buyP, sellP  int64
		wantAbove    bool
		wantBelow    bool
	}{
		{"buy pressure raises price", 1000, 0.05, 500, 100, true, false},
		{"sell pressure lowers price", 1000, 0.05, 100, 500, false, true},
		{"balanced pressure holds price", 1000, 0.05, 300, 300, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Next(tt.current, tt.volatility, tt.buyP, tt.sellP)
			if tt.wantAbove && got <= tt.current {
				t.Errorf("Next() = %d, want > %d", got, tt.current)
			}
			if tt.wantBelow && got >= tt.current {
				t.Errorf("Next() = %d, want < %d", got, tt.current)
			}
			if !tt.wantAbove && !tt.wantBelow && got != tt.current {
				t.Errorf("Next() = %d, want %d", got, tt.current)
			}
		})
	}
}

func TestNextExactFluctuation(t *testing.T) {
	m := NewModel(rand.New(rand.NewSource(1)))

	// ratio = (600-200)/(600+200) = 0.5; fluctuation = 0.5*0.04 = 0.02
	got := m.Next(1000, 0.04, 600, 200)
	if got != 1020 {
		t.Errorf("Next() = %d, want 1020", got)
	}
}

// The ±10% per-update cap holds for any inputs, including volatility
// values that would otherwise push the price further.
func TestNextHardCap(t *testing.T) {
	m := NewModel(rand.New(rand.NewSource(1)))

	got := m.Next(1000, 0.90, 1_000_000, 0)
	if got != 1100 {
		t.Errorf("one-sided buy pressure: Next() = %d, want capped 1100", got)
	}

	got = m.Next(1000, 0.90, 0, 1_000_000)
	if got != 900 {
		t.Errorf("one-sided sell pressure: Next() = %d, want capped 900", got)
	}
}

func TestNextBoundProperty(t *testing.T) {
	m := NewModel(rand.New(rand.NewSource(42)))
	rng := rand.New(rand.NewSource(43))

	for i := 0; i < 10000; i++ {
		current := rng.Int63n(100000) + 1
		vol := rng.Float64() * 0.5
		buyP := rng.Int63n(5000)
		sellP := rng.Int63n(5000)

		next := m.Next(current, vol, buyP, sellP)

		diff := next - current
		if diff < 0 {
			diff = -diff
		}
		// Allow one unit of slack for rounding the clamp boundary.
		if diff > current/10+1 {
			t.Fatalf("price moved %d from %d (>10%%), buy=%d sell=%d vol=%v",
				diff, current, buyP, sellP, vol)
		}
		if next < 1 {
			t.Fatalf("price %d below minimum", next)
		}
	}
}

func TestNextIdleDrift(t *testing.T) {
	m := NewModel(rand.New(rand.NewSource(7)))

	for i := 0; i < 1000; i++ {
		got := m.Next(1000, 0.05, 0, 0)
		if got < 990 || got > 1010 {
			t.Fatalf("idle drift %d outside ±1%% of 1000", got)
		}
	}
}

func TestNextIdleDriftDeterministic(t *testing.T) {
	a := NewModel(rand.New(rand.NewSource(99)))
	b := NewModel(rand.New(rand.NewSource(99)))

	for i := 0; i < 100; i++ {
		if pa, pb := a.Next(5000, 0.05, 0, 0), b.Next(5000, 0.05, 0, 0); pa != pb {
			t.Fatalf("same seed diverged at step %d: %d vs %d", i, pa, pb)
		}
	}
}

func TestNextFloorsAtOne(t *testing.T) {
	m := NewModel(rand.New(rand.NewSource(1)))

	// 1 - 10% rounds back to 1, never 0.
	if got := m.Next(1, 0.10, 0, 1000); got < 1 {
		t.Errorf("Next() = %d, want >= 1", got)
	}
}
