package ledger

import (
	"testing"

	"github.com/uhyunpark/bazaar/pkg/market/book"
)

func TestDebitAllOrNothing(t *testing.T) {
	p := NewParticipant("x", 100)

	if p.Debit(101) {
		t.Fatal("overdraft debit must fail")
	}
	if got := p.Balance(); got != 100 {
		t.Fatalf("failed debit mutated balance: %d", got)
	}

	if !p.Debit(100) {
		t.Fatal("exact debit must succeed")
	}
	if got := p.Balance(); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
	if p.Debit(1) {
		t.Fatal("debit from zero must fail")
	}
}

func TestCreditIgnoresNonPositive(t *testing.T) {
	p := NewParticipant("x", 50)
	p.Credit(0)
	p.Credit(-10)
	if got := p.Balance(); got != 50 {
		t.Fatalf("balance = %d, want 50", got)
	}
}

func TestWithdrawGoodsAllOrNothing(t *testing.T) {
	p := NewParticipant("x", 0)
	p.DepositGoods("wheat", 10)

	if p.WithdrawGoods("wheat", 11) {
		t.Fatal("withdraw beyond holding must fail")
	}
	if got := p.Holding("wheat"); got != 10 {
		t.Fatalf("failed withdraw mutated inventory: %d", got)
	}
	if p.WithdrawGoods("iron", 1) {
		t.Fatal("withdraw of unheld good must fail")
	}

	if !p.WithdrawGoods("wheat", 10) {
		t.Fatal("exact withdraw must succeed")
	}
	// Zeroed entries are deleted, not kept at 0.
	if inv := p.Inventory(); len(inv) != 0 {
		t.Fatalf("inventory = %v, want empty", inv)
	}
}

func TestOrderTracking(t *testing.T) {
	p := NewParticipant("x", 0)
	o := &book.Order{ID: "o1", Owner: "x", Good: "wheat", Side: book.Buy, Price: 10, Qty: 5}

	p.TrackOrder(o)
	if _, ok := p.ActiveOrder("o1"); !ok {
		t.Fatal("tracked order not found")
	}
	if got := len(p.OpenOrders()); got != 1 {
		t.Fatalf("open orders = %d, want 1", got)
	}

	p.CloseOrder(o)
	if _, ok := p.ActiveOrder("o1"); ok {
		t.Fatal("closed order still active")
	}
	if got := len(p.ClosedOrders()); got != 1 {
		t.Fatalf("closed orders = %d, want 1", got)
	}

	// Closing twice is a no-op, not a duplicate history entry.
	p.CloseOrder(o)
	if got := len(p.ClosedOrders()); got != 1 {
		t.Fatalf("closed orders after double close = %d, want 1", got)
	}
}

func TestValidate(t *testing.T) {
	p := NewParticipant("x", 10)
	p.DepositGoods("wheat", 3)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}
