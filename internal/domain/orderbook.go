package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// BookSide is one side of a book in the order the venue sent it. Prices are
// unique within a side.
type BookSide []PriceLevel

// NewBookSide builds a side from raw levels. A repeated price with the same
// size collapses into one level; a repeated price with a different size is
// ErrPriceLevelConflict.
func NewBookSide(levels []PriceLevel) (BookSide, error) {
	side := make(BookSide, 0, len(levels))
	seen := make(map[string]int, len(levels))
	for _, lvl := range levels {
		key := lvl.Price.String()
		if i, ok := seen[key]; ok {
			if !side[i].Size.Equal(lvl.Size) {
				return nil, fmt.Errorf("%w: price %s has sizes %s and %s",
					ErrPriceLevelConflict, lvl.Price, side[i].Size, lvl.Size)
			}
			continue
		}
		seen[key] = len(side)
		side = append(side, lvl)
	}
	return side, nil
}

// MaxPrice returns the highest price on the side.
func (s BookSide) MaxPrice() (decimal.Decimal, bool) {
	if len(s) == 0 {
		return decimal.Decimal{}, false
	}
	best := s[0].Price
	for _, lvl := range s[1:] {
		if lvl.Price.GreaterThan(best) {
			best = lvl.Price
		}
	}
	return best, true
}

// MinPrice returns the lowest price on the side.
func (s BookSide) MinPrice() (decimal.Decimal, bool) {
	if len(s) == 0 {
		return decimal.Decimal{}, false
	}
	best := s[0].Price
	for _, lvl := range s[1:] {
		if lvl.Price.LessThan(best) {
			best = lvl.Price
		}
	}
	return best, true
}

// CrossesUp reports whether the highest price of s reaches the lowest price
// of other. Expected form: bids.CrossesUp(asks).
func (s BookSide) CrossesUp(other BookSide) bool {
	maxPrice, ok := s.MaxPrice()
	if !ok {
		return false
	}
	minPrice, ok := other.MinPrice()
	if !ok {
		return false
	}
	return maxPrice.GreaterThanOrEqual(minPrice)
}

// OrderBookSummary is the strict form of a CLOB order book snapshot for
// one token.
type OrderBookSummary struct {
	ConditionID    ConditionID         `json:"condition_id"`
	TokenID        TokenID             `json:"token_id"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Hash           string              `json:"hash"`
	LastTradePrice decimal.NullDecimal `json:"last_trade_price"`
	MinOrderSize   decimal.Decimal     `json:"min_order_size"`
	MinTickSize    decimal.Decimal     `json:"min_tick_size"`
	NegRisk        bool                `json:"neg_risk"`
	Bids           BookSide            `json:"bids"`
	Asks           BookSide            `json:"asks"`
}

// Validate fails when the book is crossed (max bid >= min ask). The venue
// can briefly serve such books during fast moves, so conversion accepts
// them and this check is left to audits.
func (b *OrderBookSummary) Validate() error {
	if !b.Bids.CrossesUp(b.Asks) {
		return nil
	}
	maxBid, _ := b.Bids.MaxPrice()
	minAsk, _ := b.Asks.MinPrice()
	return fmt.Errorf("order book %s: bid %s crosses ask %s", FormatTokenID(b.TokenID), maxBid, minAsk)
}
