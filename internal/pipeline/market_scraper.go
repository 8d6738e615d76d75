package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
)

// ResourceMarkets names the market loop in logs and progress records.
const ResourceMarkets = "markets"

// MarketScraper pages through CLOB markets and stores each page, together
// with its derived markets and the order books of its tradeable tokens, in a
// single transaction.
type MarketScraper struct {
	db       domain.Database
	source   MarketSource
	books    *OrderBookFetcher
	progress domain.ProgressCache
	logger   *slog.Logger
}

// NewMarketScraper creates a new MarketScraper. progress may be nil.
func NewMarketScraper(db domain.Database, source MarketSource, books *OrderBookFetcher, progress domain.ProgressCache, logger *slog.Logger) *MarketScraper {
	return &MarketScraper{
		db:       db,
		source:   source,
		books:    books,
		progress: progress,
		logger:   logger.With(slog.String("component", "market_scraper")),
	}
}

// Run executes a single scrape run. It resumes after the markets already
// stored and stops at the end cursor or the page limit.
func (s *MarketScraper) Run(ctx context.Context, opts RunOptions) error {
	logger := s.logger.With(slog.String("run_id", opts.RunID))

	offset, err := resumeOffset(ctx, s.db, opts.Offset, domain.KeyspaceMarketResponses)
	if err != nil {
		return err
	}
	cursor := polymarket.EncodeCursor(offset)
	keys := newKeyTracker("market")
	pages, totalSynced := 0, 0

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("market scraper context cancelled: %w", err)
		}

		page, err := s.source.GetMarketsPage(ctx, cursor)
		if err != nil {
			return fmt.Errorf("fetching markets at cursor %q (offset %d): %w", cursor, offset, err)
		}
		if len(page.Data) == 0 {
			break
		}

		slugs := make([]string, len(page.Data))
		for i := range page.Data {
			slugs[i] = page.Data[i].MarketSlug
		}
		if err := keys.admit(slugs); err != nil {
			return fmt.Errorf("markets page at offset %d: %w", offset, err)
		}

		entries, err := s.convertPage(ctx, page.Data)
		if err != nil {
			return fmt.Errorf("markets page at offset %d: %w", offset, err)
		}
		if err := writePage(ctx, s.db, entries); err != nil {
			return fmt.Errorf("markets page at offset %d: %w", offset, err)
		}

		offset += len(page.Data)
		pages++
		totalSynced += len(page.Data)
		logger.Info("synced market page",
			slog.Int("batch_size", len(page.Data)),
			slog.Int("entries", len(entries)),
			slog.Int("total_synced", totalSynced),
			slog.Int("offset", offset),
			slog.Int("page", pages),
		)
		publishProgress(ctx, s.progress, logger, domain.SyncProgress{
			RunID:       opts.RunID,
			Resource:    ResourceMarkets,
			Offset:      offset,
			Page:        pages,
			TotalSynced: totalSynced,
			UpdatedAt:   time.Now().UTC(),
		})

		cursor = page.NextCursor
		if endOfMarkets(cursor) || opts.limitReached(pages) {
			break
		}
	}

	logger.Info("market scrape complete",
		slog.Int("total_synced", totalSynced),
		slog.Int("pages", pages),
	)
	return nil
}

// convertPage admits every market of the page through the codec, derives
// the flat markets and fetches and admits the order books of tradeable
// tokens. Any failure rejects the whole page.
func (s *MarketScraper) convertPage(ctx context.Context, raws []polymarket.MarketResponse) ([]entry, error) {
	var (
		entries  []entry
		tokenIDs []string
		errs     []error
	)
	for i := range raws {
		resp, err := codec.AdmitMarketResponse(&raws[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry{ks: domain.KeyspaceMarketResponses, key: resp.Key, value: resp.Binary})

		market, ok, err := codec.AdmitMarket(&resp.Value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			entries = append(entries, entry{ks: domain.KeyspaceMarkets, key: market.Key, value: market.Binary})
		}

		if resp.Value.ShouldDownloadOrderBooks() {
			for _, id := range resp.Value.Tokens.IDs() {
				if !id.IsZero() {
					tokenIDs = append(tokenIDs, domain.FormatTokenID(id))
				}
			}
		}
	}
	if err := batch("convert markets", len(raws), errs); err != nil {
		return nil, err
	}

	books, err := s.books.Fetch(ctx, tokenIDs)
	if err != nil {
		return nil, err
	}
	errs = errs[:0]
	for i := range books {
		book, err := codec.AdmitOrderBook(&books[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry{ks: domain.KeyspaceOrderBooks, key: book.Key, value: book.Binary})
	}
	if err := batch("convert order books", len(books), errs); err != nil {
		return nil, err
	}
	return entries, nil
}

// publishProgress is best effort; a cache outage never fails a sync.
func publishProgress(ctx context.Context, cache domain.ProgressCache, logger *slog.Logger, p domain.SyncProgress) {
	if cache == nil {
		return
	}
	if err := cache.SetProgress(ctx, p); err != nil {
		logger.WarnContext(ctx, "publish sync progress failed",
			slog.String("resource", p.Resource),
			slog.String("error", err.Error()),
		)
	}
}
