package pipeline

import (
	"context"

	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
)

// MarketSource pages through CLOB markets.
type MarketSource interface {
	GetMarketsPage(ctx context.Context, cursor string) (polymarket.MarketsPage, error)
}

// OrderBookSource fetches a batch of books in one request. It returns an
// error wrapping domain.ErrPayloadTooLarge when the batch is too big.
type OrderBookSource interface {
	GetOrderBooks(ctx context.Context, tokenIDs []string) ([]polymarket.OrderBookSummary, error)
}

// EventSource pages through Gamma events.
type EventSource interface {
	GetEvents(ctx context.Context, q polymarket.EventsQuery) ([]polymarket.Event, error)
}

// EventRefresher re-fetches known events by id.
type EventRefresher interface {
	GetEventsByID(ctx context.Context, ids []uint64) ([]polymarket.Event, error)
	EventURL(id uint64) string
}

var (
	_ MarketSource    = (*polymarket.ClobClient)(nil)
	_ OrderBookSource = (*polymarket.ClobClient)(nil)
	_ EventSource     = (*polymarket.GammaClient)(nil)
	_ EventRefresher  = (*polymarket.GammaClient)(nil)
)
