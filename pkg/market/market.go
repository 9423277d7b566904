package market

import (
	"math/rand"

	"github.com/uhyunpark/bazaar/pkg/market/book"
	"github.com/uhyunpark/bazaar/pkg/market/ledger"
	"github.com/uhyunpark/bazaar/pkg/market/pricing"
	"github.com/uhyunpark/bazaar/pkg/market/quota"
)

// Re-export subpackage types so hosts only import pkg/market.

// From book package
type (
	Side        = book.Side
	Order       = book.Order
	OrderStatus = book.OrderStatus
	Book        = book.Book
)

const (
	Buy  = book.Buy
	Sell = book.Sell
)

func NewBook() *Book {
	return book.New()
}

// From ledger package
type Participant = ledger.Participant

func NewParticipant(id string, openingBalance int64) *Participant {
	return ledger.NewParticipant(id, openingBalance)
}

// From quota package
type (
	QuotaKey     = quota.Key
	QuotaLimiter = quota.Limiter
)

// From pricing package
type PriceModel = pricing.Model

func NewPriceModel(rng *rand.Rand) *PriceModel {
	return pricing.NewModel(rng)
}
