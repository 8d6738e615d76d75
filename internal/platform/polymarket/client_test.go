package polymarket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor(t *testing.T) {
	assert.Equal(t, "MA==", EncodeCursor(0))
	assert.Equal(t, "NTAw", EncodeCursor(500))
	assert.Equal(t, "NTAwMA==", EncodeCursor(5000))

	off, err := DecodeCursor(EndCursor)
	require.NoError(t, err)
	assert.Equal(t, -1, off)

	off, err = DecodeCursor(EncodeCursor(1234))
	require.NoError(t, err)
	assert.Equal(t, 1234, off)

	_, err = DecodeCursor("!!")
	assert.Error(t, err)
}

func TestCheckHTTPStatus(t *testing.T) {
	assert.NoError(t, checkHTTPStatus(http.StatusOK, nil))
	assert.ErrorIs(t, checkHTTPStatus(http.StatusNotFound, nil), domain.ErrNotFound)
	assert.ErrorIs(t, checkHTTPStatus(http.StatusForbidden, nil), domain.ErrUnauthorized)
	assert.ErrorIs(t, checkHTTPStatus(http.StatusTooManyRequests, nil), domain.ErrRateLimited)
	assert.ErrorIs(t, checkHTTPStatus(http.StatusRequestEntityTooLarge, nil), domain.ErrPayloadTooLarge)
	assert.EqualError(t, checkHTTPStatus(http.StatusBadGateway, []byte("oops")), "HTTP 502: oops")
}

func TestGetMarketsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "NTAw", r.URL.Query().Get("next_cursor"))
		_, _ = io.WriteString(w, `{"limit":500,"count":1,"next_cursor":"LTE=","data":[{
			"market_slug":"will-it-rain","condition_id":"","question_id":"",
			"accepting_order_timestamp":null,"end_date_iso":"","game_start_time":"2024-05-01T12:00:00Z",
			"minimum_order_size":5,"minimum_tick_size":0.01,
			"tokens":[{"token_id":"","outcome":"Yes","price":0,"winner":false},{"token_id":"","outcome":"No","price":0,"winner":false}],
			"rewards":{"rates":null,"min_size":0,"max_spread":0},"tags":["Weather"]}]}`)
	}))
	defer srv.Close()

	page, err := NewClobClient(srv.URL).GetMarketsPage(context.Background(), EncodeCursor(500))
	require.NoError(t, err)
	assert.Equal(t, EndCursor, page.NextCursor)
	require.Len(t, page.Data, 1)

	m := page.Data[0]
	assert.Equal(t, "will-it-rain", m.MarketSlug)
	assert.False(t, m.AcceptingOrderTimestamp.Valid)
	assert.False(t, m.EndDateISO.Valid, "empty string decodes as absent")
	assert.True(t, m.GameStartTime.Valid)
	assert.True(t, m.MinimumTickSize.Equal(decimal.RequireFromString("0.01")))
	assert.Len(t, m.Tokens, 2)
}

func TestGetOrderBooksPayloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var params []BookParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		if len(params) > 1 {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		_, _ = io.WriteString(w, `[{"market":"0x01","asset_id":"`+params[0].TokenID+`","timestamp":"1700000000000","hash":"h",
			"bids":[{"price":"0.4","size":"10"}],"asks":[],"min_order_size":"5","tick_size":"0.01","neg_risk":false,"last_trade_price":"0.41"}]`)
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL)
	_, err := c.GetOrderBooks(context.Background(), []string{"1", "2"})
	assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)

	books, err := c.GetOrderBooks(context.Background(), []string{"1"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "1", books[0].AssetID)
	assert.True(t, books[0].LastTradePrice.Valid)
	assert.Empty(t, books[0].Asks)
}

func TestGetEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if ids := q["id"]; len(ids) > 0 {
			assert.Equal(t, []string{"7", "9"}, ids)
			_, _ = io.WriteString(w, `[{"id":"7","slug":"seven"},{"id":"9","slug":"nine","markets":[]}]`)
			return
		}
		assert.Equal(t, "500", q.Get("limit"))
		assert.Equal(t, "id", q.Get("order"))
		assert.Equal(t, "true", q.Get("ascending"))
		_, _ = io.WriteString(w, `[{"id":"1","slug":"one","active":"true","markets":[
			{"question":"Rain by May 1?","outcomes":"[\"Yes\", \"No\"]","outcomePrices":"[\"0.25\", \"0.75\"]",
			 "endDate":"2024-05-01T12:00:00Z","endDateIso":"2024-05-01"}]}]`)
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	events, err := g.GetEvents(context.Background(), EventsQuery{Limit: 500, Order: "id", Ascending: true})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, bool(events[0].Active))
	mk := events[0].Markets[0]
	assert.Equal(t, StringList{"Yes", "No"}, mk.Outcomes)
	require.Len(t, mk.OutcomePrices, 2)
	assert.True(t, mk.OutcomePrices[0].Equal(decimal.RequireFromString("0.25")))
	assert.True(t, events[0].IsFresh(domain.FreshnessCutoff))

	byID, err := g.GetEventsByID(context.Background(), []uint64{7, 9})
	require.NoError(t, err)
	require.Len(t, byID, 2)
	assert.Nil(t, byID[0].Markets)
	assert.NotNil(t, byID[1].Markets)
	assert.Equal(t, srv.URL+"/events/7", g.EventURL(7))
}

func TestEventFreshness(t *testing.T) {
	var ev Event
	assert.True(t, ev.IsFresh(domain.FreshnessCutoff), "no markets")

	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","markets":[{"endDate":"2022-12-31T23:59:59Z"}]}`), &ev))
	assert.False(t, ev.IsFresh(domain.FreshnessCutoff))

	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","markets":[{"endDate":null}]}`), &ev))
	assert.False(t, ev.IsFresh(domain.FreshnessCutoff))
}
