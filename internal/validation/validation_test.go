package validation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
	"github.com/alanyoungcy/polycache/internal/store/sqlite"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func tokenID(v uint64) domain.TokenID {
	return *uint256.NewInt(v)
}

func token(id uint64, price string, winner bool) domain.Token {
	return domain.Token{TokenID: tokenID(id), Outcome: "Yes", Price: decimal.RequireFromString(price), Winner: winner}
}

func identity(i byte) *domain.MarketIdentity {
	return &domain.MarketIdentity{
		ConditionID: common.BytesToHash([]byte{1, i}),
		QuestionID:  common.BytesToHash([]byte{2, i}),
	}
}

func book(id uint64, bid, ask string) domain.OrderBookSummary {
	return domain.OrderBookSummary{
		TokenID: tokenID(id),
		Bids:    domain.BookSide{{Price: decimal.RequireFromString(bid), Size: decimal.NewFromInt(1)}},
		Asks:    domain.BookSide{{Price: decimal.RequireFromString(ask), Size: decimal.NewFromInt(1)}},
	}
}

type seed struct {
	markets []domain.MarketResponse
	books   map[uint64]domain.OrderBookSummary
	events  []domain.GammaEvent
}

func createTestDB(t *testing.T, s seed) domain.Database {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	for i := range s.markets {
		m := &s.markets[i]
		require.NoError(t, tx.Insert(ctx, domain.KeyspaceMarketResponses, []byte(m.Slug), codec.MarshalMarketResponse(m)))
	}
	for key, b := range s.books {
		require.NoError(t, tx.Insert(ctx, domain.KeyspaceOrderBooks, domain.TokenKey(tokenID(key)), codec.MarshalOrderBook(&b)))
	}
	for i := range s.events {
		ev := &s.events[i]
		require.NoError(t, tx.Insert(ctx, domain.KeyspaceGammaEvents, domain.EventKey(ev.ID), codec.MarshalGammaEvent(ev)))
	}
	require.NoError(t, tx.Commit())
	return db
}

func auditedCache(t *testing.T) domain.Database {
	return createTestDB(t, seed{
		markets: []domain.MarketResponse{
			{
				Slug:            "a",
				Identity:        identity(1),
				Active:          true,
				EnableOrderBook: true,
				AcceptingOrders: true,
				Tokens:          domain.TokenPair{Left: token(1, "0.4", false), Right: token(2, "0.6", false)},
			},
			{
				Slug:            "b",
				EnableOrderBook: true,
				Tokens:          domain.TokenPair{Left: token(0, "0", false), Right: token(0, "0", false)},
			},
			{
				Slug:          "c",
				Identity:      identity(3),
				Active:        true,
				Closed:        true,
				Is5050Outcome: true,
				Tokens:        domain.TokenPair{Left: token(1, "0.5", true), Right: token(3, "1.5", true)},
			},
		},
		books: map[uint64]domain.OrderBookSummary{
			1: book(1, "0.6", "0.5"),
			8: book(9, "0.1", "0.9"),
		},
		events: []domain.GammaEvent{
			{ID: 0, Slug: "z"},
			{ID: 1, Slug: "x"},
			{ID: 2, Slug: "x"},
		},
	})
}

func TestPropertyName(t *testing.T) {
	assert.Equal(t, "MarketSlugIsUnique", PropertyName(&MarketSlugIsUnique{}))
	assert.Equal(t, "ActiveXorClosed", PropertyName(ActiveXorClosed{}))
	assert.Empty(t, PropertyName(nil))
}

func TestRegistry(t *testing.T) {
	r := DefaultMarketProperties()
	assert.Len(t, r.List(), 15)
	assert.Contains(t, r.List(), "TradeableMarketHasOrderBooks")

	_, err := r.Get("NoSuchProperty")
	assert.Error(t, err)

	a, err := r.Get("MarketSlugIsUnique")
	require.NoError(t, err)
	b, err := r.Get("MarketSlugIsUnique")
	require.NoError(t, err)
	assert.NotSame(t, a, b, "every Get builds a fresh instance")

	assert.Equal(t, []string{"BidsAndAsksDoNotCross", "OrderBookTokenIdMatchesKey"}, DefaultOrderBookProperties().List())
	assert.Equal(t, []string{"EventIdIsNonEmpty", "EventSlugIsUnique"}, DefaultEventProperties().List())
}

func TestCheckerReport(t *testing.T) {
	db := auditedCache(t)

	report, err := NewDefaultChecker(0, testLogger()).Check(context.Background(), db)
	require.NoError(t, err)

	want := domain.Report{
		"ActiveXorClosed":                          {Count: 2, Examples: []string{"b", "c"}},
		"IfConditionIdIsNoneThenOrdersAreDisabled": {Count: 1, Examples: []string{"b"}},
		"TokenIdIsUnique":                          {Count: 2, Examples: []string{"b", "c"}},
		"TokenIdIsUniqueOrZero":                    {Count: 1, Examples: []string{"c"}},
		"IfIs5050OutcomeThenBothTokensAreLosers":   {Count: 1, Examples: []string{"c"}},
		"MaxWinnerTokenCountIsOne":                 {Count: 1, Examples: []string{"c"}},
		"TokenPricesAreBetweenZeroAndOne":          {Count: 1, Examples: []string{"c"}},
		"TradeableMarketHasOrderBooks":             {Count: 1, Examples: []string{"a"}},
		"BidsAndAsksDoNotCross":                    {Count: 1, Examples: []string{"1"}},
		"OrderBookTokenIdMatchesKey":               {Count: 1, Examples: []string{"8"}},
		"EventSlugIsUnique":                        {Count: 1, Examples: []string{"2"}},
		"EventIdIsNonEmpty":                        {Count: 1, Examples: []string{"0"}},
	}
	assert.Equal(t, want, violated(report))
	assert.EqualValues(t, 14, report.Total())
	assert.Equal(t, 12, report.Violated())

	assert.Len(t, report, 19, "every registered property is reported")
	assert.Equal(t, &domain.ViolationStats{Examples: []string{}}, report["TokensLenIsTwo"])
}

// violated drops the properties that hold.
func violated(r domain.Report) domain.Report {
	out := make(domain.Report)
	for name, s := range r {
		if s.Count > 0 {
			out[name] = s
		}
	}
	return out
}

func TestCheckerExampleLimit(t *testing.T) {
	db := auditedCache(t)

	report, err := NewDefaultChecker(1, testLogger()).Check(context.Background(), db)
	require.NoError(t, err)
	require.Contains(t, report, "ActiveXorClosed")
	assert.EqualValues(t, 2, report["ActiveXorClosed"].Count)
	assert.Equal(t, []string{"b"}, report["ActiveXorClosed"].Examples)
}

func TestCheckerStatefulPropertiesResetPerRun(t *testing.T) {
	db := createTestDB(t, seed{events: []domain.GammaEvent{{ID: 1, Slug: "x"}}})
	c := NewDefaultChecker(0, testLogger())

	for range 2 {
		report, err := c.Check(context.Background(), db)
		require.NoError(t, err)
		assert.Zero(t, report.Total())
		assert.Contains(t, report, "EventSlugIsUnique")
	}
}

func TestCheckerCustomProperty(t *testing.T) {
	db := createTestDB(t, seed{events: []domain.GammaEvent{{ID: 7, Slug: "x", HasMarkets: true}}})
	events := NewRegistry[domain.GammaEvent]()
	name := events.Register(func() Property[domain.GammaEvent] { return eventHasNoMarkets{} })
	assert.Equal(t, "eventHasNoMarkets", name)

	c := NewChecker(NewRegistry[domain.MarketResponse](), NewRegistry[domain.OrderBookSummary](), events, 0, testLogger())
	report, err := c.Check(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, domain.Report{name: {Count: 1, Examples: []string{"7"}}}, report)
}

type eventHasNoMarkets struct{}

func (eventHasNoMarkets) Check(_ context.Context, _ []byte, ev *domain.GammaEvent, _ domain.Snapshot) (bool, error) {
	return !ev.HasMarkets, nil
}

func TestCheckerRejectsUndecodableRecord(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, domain.KeyspaceGammaEvents, domain.EventKey(1), []byte{0xff, 0xff}))
	require.NoError(t, tx.Commit())

	_, err = NewDefaultChecker(0, testLogger()).Check(ctx, db)
	assert.ErrorContains(t, err, "scan gamma_events")
}

func TestCheckerCollectsEveryUndecodableRecord(t *testing.T) {
	db := createTestDB(t, seed{events: []domain.GammaEvent{{ID: 2, Slug: "ok"}}})

	ctx := context.Background()
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, domain.KeyspaceGammaEvents, domain.EventKey(1), []byte{0xff, 0xff}))
	require.NoError(t, tx.Insert(ctx, domain.KeyspaceGammaEvents, domain.EventKey(3), []byte{0xff}))
	require.NoError(t, tx.Commit())

	_, err = NewDefaultChecker(0, testLogger()).Check(ctx, db)
	var batchErr *domain.BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 3, batchErr.Total)
	assert.Len(t, batchErr.Errs, 2)
	assert.ErrorContains(t, err, "2 of 3 failed")
	assert.ErrorContains(t, err, "decode 1")
	assert.ErrorContains(t, err, "decode 3")
}

func admittedFixtures(t *testing.T) (codec.Admitted[domain.MarketResponse], codec.Admitted[domain.OrderBookSummary]) {
	t.Helper()
	var market polymarket.MarketResponse
	var book polymarket.OrderBookSummary
	for name, v := range map[string]any{"market.json": &market, "orderbook.json": &book} {
		data, err := os.ReadFile(filepath.Join("..", "codec", "testdata", name))
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, v))
	}
	admMarket, err := codec.AdmitMarketResponse(&market)
	require.NoError(t, err)
	admBook, err := codec.AdmitOrderBook(&book)
	require.NoError(t, err)
	return admMarket, admBook
}

func TestReplayerRun(t *testing.T) {
	admMarket, admBook := admittedFixtures(t)
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dup := admBook.Value
	dup.Bids = append(append(domain.BookSide{}, dup.Bids...), dup.Bids[0])

	ctx := context.Background()
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, domain.KeyspaceMarketResponses, admMarket.Key, admMarket.Binary))
	require.NoError(t, tx.Insert(ctx, domain.KeyspaceOrderBooks, admBook.Key, admBook.Binary))
	require.NoError(t, tx.Insert(ctx, domain.KeyspaceOrderBooks, domain.TokenKey(tokenID(1)), admBook.Binary))
	require.NoError(t, tx.Insert(ctx, domain.KeyspaceOrderBooks, domain.TokenKey(tokenID(2)), codec.MarshalOrderBook(&dup)))
	require.NoError(t, tx.Commit())

	summary, err := NewReplayer(2, testLogger()).Run(ctx, db)
	assert.Equal(t, ReplaySummary{
		domain.KeyspaceMarketResponses: 1,
		domain.KeyspaceOrderBooks:      3,
	}, summary)

	var be *domain.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 3, be.Total)
	assert.Len(t, be.Errs, 2, "the stored fixture replays, the two altered books do not")
	assert.ErrorIs(t, err, domain.ErrRoundTripMismatch)
	assert.Contains(t, err.Error(), "replay order_book_summary_responses")
}

func TestReplayerEmptyCache(t *testing.T) {
	summary, err := NewReplayer(0, testLogger()).Run(context.Background(), createTestDB(t, seed{}))
	require.NoError(t, err)
	assert.Zero(t, summary[domain.KeyspaceMarketResponses])
	assert.Zero(t, summary[domain.KeyspaceOrderBooks])
}
