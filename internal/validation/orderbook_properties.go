package validation

import (
	"bytes"
	"context"

	"github.com/alanyoungcy/polycache/internal/domain"
)

type orderBookProperty = Property[domain.OrderBookSummary]

// DefaultOrderBookProperties registers every order book property.
func DefaultOrderBookProperties() *Registry[domain.OrderBookSummary] {
	r := NewRegistry[domain.OrderBookSummary]()
	r.Register(func() orderBookProperty { return BidsAndAsksDoNotCross{} })
	r.Register(func() orderBookProperty { return OrderBookTokenIdMatchesKey{} })
	return r
}

// BidsAndAsksDoNotCross holds when the best bid is below the best ask.
type BidsAndAsksDoNotCross struct{}

func (BidsAndAsksDoNotCross) Check(_ context.Context, _ []byte, b *domain.OrderBookSummary, _ domain.Snapshot) (bool, error) {
	return b.Validate() == nil, nil
}

// OrderBookTokenIdMatchesKey holds when the book is stored under the key
// of its own token.
type OrderBookTokenIdMatchesKey struct{}

func (OrderBookTokenIdMatchesKey) Check(_ context.Context, key []byte, b *domain.OrderBookSummary, _ domain.Snapshot) (bool, error) {
	return bytes.Equal(key, domain.TokenKey(b.TokenID)), nil
}
