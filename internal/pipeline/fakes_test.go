package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
	"github.com/alanyoungcy/polycache/internal/store/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// countingDB counts commit and persist cycles of a real store.
type countingDB struct {
	domain.Database
	commits  atomic.Int32
	persists atomic.Int32
}

func (c *countingDB) Begin(ctx context.Context) (domain.WriteTx, error) {
	tx, err := c.Database.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &countingTx{WriteTx: tx, commits: &c.commits}, nil
}

func (c *countingDB) Persist(ctx context.Context) error {
	c.persists.Add(1)
	return c.Database.Persist(ctx)
}

type countingTx struct {
	domain.WriteTx
	commits *atomic.Int32
}

func (t *countingTx) Commit() error {
	t.commits.Add(1)
	return t.WriteTx.Commit()
}

func createTestDB(t *testing.T) *countingDB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &countingDB{Database: db}
}

func storedLen(t *testing.T, db domain.Database, ks domain.Keyspace) int {
	t.Helper()
	n, err := db.Len(context.Background(), ks)
	require.NoError(t, err)
	return n
}

// --------------------------------------------------------------------------
// Raw fixtures
// --------------------------------------------------------------------------

func hexID(prefix, i int) polymarket.Hex {
	return polymarket.Hex(fmt.Sprintf("0x%02x%062x", prefix, i))
}

// unlaunchedMarket is the smallest market the codec admits.
func unlaunchedMarket(i int) polymarket.MarketResponse {
	return polymarket.MarketResponse{
		MarketSlug: "market-" + strconv.Itoa(i),
		Question:   fmt.Sprintf("Question %d?", i),
		Tokens: []polymarket.Token{
			{Outcome: "Yes"},
			{Outcome: "No"},
		},
	}
}

// launchedMarket is tradeable and has two order books.
func launchedMarket(i int) polymarket.MarketResponse {
	m := unlaunchedMarket(i)
	m.ConditionID = hexID(1, i)
	m.QuestionID = hexID(2, i)
	m.Active = true
	m.EnableOrderBook = true
	m.AcceptingOrders = true
	m.AcceptingOrderTimestamp = polymarket.SomeTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	m.MinimumTickSize = decimal.RequireFromString("0.01")
	m.Tokens[0].TokenID = strconv.Itoa(1_000_000 + 2*i)
	m.Tokens[0].Price = decimal.RequireFromString("0.4")
	m.Tokens[1].TokenID = strconv.Itoa(1_000_001 + 2*i)
	m.Tokens[1].Price = decimal.RequireFromString("0.6")
	return m
}

func freshEvent(id int, slug string) polymarket.Event {
	q := "Will it happen by June 30?"
	return polymarket.Event{
		ID:   strconv.Itoa(id),
		Slug: &slug,
		Markets: []polymarket.GammaMarket{{
			Question: &q,
			EndDate:  polymarket.SomeTime(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)),
		}},
	}
}

func cascadeEvent(id int, janYes, febYes string) polymarket.Event {
	slug := "cascade-" + strconv.Itoa(id)
	jan, feb := "Rate cut by January 31?", "Rate cut by February 28?"
	janISO, febISO := "2026-01-31", "2026-02-28"
	return polymarket.Event{
		ID:   strconv.Itoa(id),
		Slug: &slug,
		Markets: []polymarket.GammaMarket{
			{
				Question:      &jan,
				Outcomes:      polymarket.StringList{"Yes", "No"},
				OutcomePrices: polymarket.DecimalList{decimal.RequireFromString(janYes), decimal.RequireFromString("0.5")},
				EndDate:       polymarket.SomeTime(time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)),
				EndDateISO:    &janISO,
			},
			{
				Question:      &feb,
				Outcomes:      polymarket.StringList{"Yes", "No"},
				OutcomePrices: polymarket.DecimalList{decimal.RequireFromString(febYes), decimal.RequireFromString("0.5")},
				EndDate:       polymarket.SomeTime(time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)),
				EndDateISO:    &febISO,
			},
		},
	}
}

// --------------------------------------------------------------------------
// Fake venue
// --------------------------------------------------------------------------

// fakeClob serves markets in pages and answers book requests for any token.
type fakeClob struct {
	markets  []polymarket.MarketResponse
	pageSize int
	// maxBooks rejects larger book requests as too large when > 0.
	maxBooks int
	// failMarkets fails every market request when set.
	failMarkets error

	mu           sync.Mutex
	pageRequests int
	bookRequests []int
}

func (f *fakeClob) GetMarketsPage(ctx context.Context, cursor string) (polymarket.MarketsPage, error) {
	f.mu.Lock()
	f.pageRequests++
	f.mu.Unlock()
	if f.failMarkets != nil {
		return polymarket.MarketsPage{}, f.failMarkets
	}
	if err := ctx.Err(); err != nil {
		return polymarket.MarketsPage{}, err
	}

	offset, err := polymarket.DecodeCursor(cursor)
	if err != nil {
		return polymarket.MarketsPage{}, err
	}
	if offset >= len(f.markets) {
		return polymarket.MarketsPage{NextCursor: polymarket.EndCursor}, nil
	}
	end := min(offset+f.pageSize, len(f.markets))
	next := polymarket.EncodeCursor(end)
	if end == len(f.markets) {
		next = polymarket.EndCursor
	}
	return polymarket.MarketsPage{
		Limit:      f.pageSize,
		Count:      end - offset,
		NextCursor: next,
		Data:       f.markets[offset:end],
	}, nil
}

func (f *fakeClob) GetOrderBooks(_ context.Context, tokenIDs []string) ([]polymarket.OrderBookSummary, error) {
	f.mu.Lock()
	f.bookRequests = append(f.bookRequests, len(tokenIDs))
	f.mu.Unlock()
	if f.maxBooks > 0 && len(tokenIDs) > f.maxBooks {
		return nil, fmt.Errorf("post /books: %w", domain.ErrPayloadTooLarge)
	}
	out := make([]polymarket.OrderBookSummary, len(tokenIDs))
	for i, id := range tokenIDs {
		out[i] = polymarket.OrderBookSummary{
			Market:    hexID(1, 0),
			AssetID:   id,
			Timestamp: "1700000000000",
			Bids:      []polymarket.OrderSummary{{Price: decimal.RequireFromString("0.39"), Size: decimal.NewFromInt(10)}},
			Asks:      []polymarket.OrderSummary{{Price: decimal.RequireFromString("0.41"), Size: decimal.NewFromInt(12)}},
			TickSize:  decimal.RequireFromString("0.01"),
		}
	}
	return out, nil
}

// fakeGamma serves events by offset and by id.
type fakeGamma struct {
	events []polymarket.Event
	byID   map[uint64]polymarket.Event
	fail   error

	mu      sync.Mutex
	queries []polymarket.EventsQuery
	idCalls [][]uint64
}

func (f *fakeGamma) GetEvents(ctx context.Context, q polymarket.EventsQuery) ([]polymarket.Event, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Offset >= len(f.events) {
		return nil, nil
	}
	return f.events[q.Offset:min(q.Offset+q.Limit, len(f.events))], nil
}

func (f *fakeGamma) GetEventsByID(_ context.Context, ids []uint64) ([]polymarket.Event, error) {
	f.mu.Lock()
	f.idCalls = append(f.idCalls, append([]uint64(nil), ids...))
	f.mu.Unlock()
	var out []polymarket.Event
	for _, id := range ids {
		if ev, ok := f.byID[id]; ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeGamma) EventURL(id uint64) string {
	return "https://gamma.test/events/" + strconv.FormatUint(id, 10)
}

// fakeLock grants the lease once.
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	released int
}

func (l *fakeLock) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.held = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
	}, nil
}

type fakeProgress struct {
	mu   sync.Mutex
	last map[string]domain.SyncProgress
}

func (p *fakeProgress) SetProgress(_ context.Context, sp domain.SyncProgress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		p.last = make(map[string]domain.SyncProgress)
	}
	p.last[sp.Resource] = sp
	return nil
}

func (p *fakeProgress) GetProgress(_ context.Context, resource string) (domain.SyncProgress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.last[resource]
	if !ok {
		return domain.SyncProgress{}, domain.ErrNotFound
	}
	return sp, nil
}

type sentAlert struct {
	event, key, title string
}

type fakeNotifier struct {
	mu   sync.Mutex
	seen map[string]bool
	sent []sentAlert
}

func (n *fakeNotifier) NotifyOnce(_ context.Context, event, key, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seen == nil {
		n.seen = make(map[string]bool)
	}
	if n.seen[key] {
		return nil
	}
	n.seen[key] = true
	n.sent = append(n.sent, sentAlert{event: event, key: key, title: title})
	return nil
}
