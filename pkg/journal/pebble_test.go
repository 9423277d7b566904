package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/uhyunpark/bazaar/pkg/market"
)

func sampleTrade(id string) market.Trade {
	return market.Trade{
		ID:     id,
		Buyer:  "x",
		Seller: "y",
		Good:   "wheat",
		Qty:    10,
		Price:  120,
		Tax:    12,
		At:     time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestAppendAndReplay(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "trades.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	if err := j.AppendTrade(sampleTrade("t1")); err != nil {
		t.Fatal(err)
	}
	if err := j.AppendTrade(sampleTrade("t2")); err != nil {
		t.Fatal(err)
	}
	if got := j.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	var ids []string
	err = j.Replay(func(tr market.Trade) error {
		ids = append(ids, tr.ID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "t1" || ids[1] != "t2" {
		t.Fatalf("replay order = %v, want [t1 t2]", ids)
	}
}

func TestReopenResumesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.db")

	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.AppendTrade(sampleTrade("t1")); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j2.Close()

	if got := j2.Len(); got != 1 {
		t.Fatalf("Len() after reopen = %d, want 1", got)
	}
	if err := j2.AppendTrade(sampleTrade("t2")); err != nil {
		t.Fatal(err)
	}

	var ids []string
	if err := j2.Replay(func(tr market.Trade) error {
		ids = append(ids, tr.ID)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[1] != "t2" {
		t.Fatalf("replay after reopen = %v, want [t1 t2]", ids)
	}
}

func TestTradeRoundTrip(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "trades.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	want := sampleTrade("rt")
	if err := j.AppendTrade(want); err != nil {
		t.Fatal(err)
	}

	var got market.Trade
	if err := j.Replay(func(tr market.Trade) error {
		got = tr
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got.ID != want.ID || got.Qty != want.Qty || got.Price != want.Price ||
		got.Tax != want.Tax || !got.At.Equal(want.At) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}
