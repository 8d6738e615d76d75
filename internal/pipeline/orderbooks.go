package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of token ids sent per POST /books request.
const DefaultChunkSize = 500

// OrderBookFetcher fetches books for many tokens with one concurrent request
// per chunk. A chunk the venue rejects as too large is halved and retried
// until it succeeds or is down to a single token.
type OrderBookFetcher struct {
	source    OrderBookSource
	chunkSize int
	logger    *slog.Logger
}

// NewOrderBookFetcher creates an OrderBookFetcher. A chunkSize < 1 selects
// DefaultChunkSize.
func NewOrderBookFetcher(source OrderBookSource, chunkSize int, logger *slog.Logger) *OrderBookFetcher {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &OrderBookFetcher{
		source:    source,
		chunkSize: chunkSize,
		logger:    logger.With(slog.String("component", "orderbook_fetcher")),
	}
}

// Fetch returns the books of tokenIDs. The result order is unspecified.
// Every failing chunk is reported, not just the first.
func (f *OrderBookFetcher) Fetch(ctx context.Context, tokenIDs []string) ([]polymarket.OrderBookSummary, error) {
	if len(tokenIDs) == 0 {
		return nil, nil
	}
	chunks := chunk(tokenIDs, f.chunkSize)
	results := make([][]polymarket.OrderBookSummary, len(chunks))
	errs := make([]error, len(chunks))

	var g errgroup.Group
	for i, c := range chunks {
		g.Go(func() error {
			results[i], errs[i] = f.fetchChunk(ctx, c)
			return nil
		})
	}
	g.Wait()

	var failed []error
	var books []polymarket.OrderBookSummary
	for i := range chunks {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		books = append(books, results[i]...)
	}
	if err := batch("fetch order book chunks", len(chunks), failed); err != nil {
		return nil, err
	}
	return books, nil
}

func (f *OrderBookFetcher) fetchChunk(ctx context.Context, ids []string) ([]polymarket.OrderBookSummary, error) {
	books, err := f.source.GetOrderBooks(ctx, ids)
	if err == nil {
		return books, nil
	}
	if !errors.Is(err, domain.ErrPayloadTooLarge) || len(ids) <= 1 {
		return nil, fmt.Errorf("fetch %d order books starting at %s: %w", len(ids), ids[0], err)
	}

	mid := len(ids) / 2
	f.logger.DebugContext(ctx, "splitting order book chunk",
		slog.Int("size", len(ids)),
		slog.Int("left", mid),
		slog.Int("right", len(ids)-mid),
	)
	left, err := f.fetchChunk(ctx, ids[:mid])
	if err != nil {
		return nil, err
	}
	right, err := f.fetchChunk(ctx, ids[mid:])
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

func chunk[T any](items []T, size int) [][]T {
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}
