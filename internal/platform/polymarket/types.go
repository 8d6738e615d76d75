package polymarket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// Hex is a 0x-prefixed hex identifier as sent by the venue. Letter case
// carries no information, so two Hex values with different case are the
// same identifier.
type Hex string

// NullTime is an RFC 3339 timestamp the venue may send as null, as an empty
// string, or omit entirely. All three decode to Valid == false.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// SomeTime wraps a present timestamp.
func SomeTime(t time.Time) NullTime {
	return NullTime{Time: t, Valid: true}
}

func (n *NullTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = NullTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		*n = NullTime{}
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*n = NullTime{Time: t, Valid: true}
	return nil
}

func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time.Format(time.RFC3339Nano))
}

// Ptr returns the time or nil.
func (n NullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// NullTimeFrom is the inverse of Ptr.
func NullTimeFrom(t *time.Time) NullTime {
	if t == nil {
		return NullTime{}
	}
	return SomeTime(*t)
}

// StringList decodes either a JSON array of strings or a string holding a
// JSON-encoded array, which is how Gamma sends "outcomes".
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	inner, err := unwrapEncodedArray(data)
	if err != nil {
		return err
	}
	var out []string
	if err := json.Unmarshal(inner, &out); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	*l = out
	return nil
}

// DecimalList is StringList for decimal values, used by "outcomePrices".
type DecimalList []decimal.Decimal

func (l *DecimalList) UnmarshalJSON(data []byte) error {
	inner, err := unwrapEncodedArray(data)
	if err != nil {
		return err
	}
	var out []decimal.Decimal
	if err := json.Unmarshal(inner, &out); err != nil {
		return fmt.Errorf("decimal list: %w", err)
	}
	*l = out
	return nil
}

func unwrapEncodedArray(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// MarketsPage is one page of GET /markets.
type MarketsPage struct {
	Limit      int              `json:"limit"`
	Count      int              `json:"count"`
	NextCursor string           `json:"next_cursor"`
	Data       []MarketResponse `json:"data"`
}

// MarketResponse is a market exactly as the CLOB API returns it. Empty
// strings stand for absent ids.
type MarketResponse struct {
	EnableOrderBook         bool            `json:"enable_order_book"`
	Active                  bool            `json:"active"`
	Closed                  bool            `json:"closed"`
	Archived                bool            `json:"archived"`
	AcceptingOrders         bool            `json:"accepting_orders"`
	AcceptingOrderTimestamp NullTime        `json:"accepting_order_timestamp"`
	MinimumOrderSize        decimal.Decimal `json:"minimum_order_size"`
	MinimumTickSize         decimal.Decimal `json:"minimum_tick_size"`
	ConditionID             Hex             `json:"condition_id"`
	QuestionID              Hex             `json:"question_id"`
	Question                string          `json:"question"`
	Description             string          `json:"description"`
	MarketSlug              string          `json:"market_slug"`
	EndDateISO              NullTime        `json:"end_date_iso"`
	GameStartTime           NullTime        `json:"game_start_time"`
	SecondsDelay            uint64          `json:"seconds_delay"`
	FPMM                    Hex             `json:"fpmm"`
	MakerBaseFee            decimal.Decimal `json:"maker_base_fee"`
	TakerBaseFee            decimal.Decimal `json:"taker_base_fee"`
	NotificationsEnabled    bool            `json:"notifications_enabled"`
	NegRisk                 bool            `json:"neg_risk"`
	NegRiskMarketID         Hex             `json:"neg_risk_market_id"`
	NegRiskRequestID        Hex             `json:"neg_risk_request_id"`
	Icon                    string          `json:"icon"`
	Image                   string          `json:"image"`
	Rewards                 Rewards         `json:"rewards"`
	Is5050Outcome           bool            `json:"is_50_50_outcome"`
	Tokens                  []Token         `json:"tokens"`
	Tags                    []string        `json:"tags"`
}

// Rewards is the liquidity reward block of a market.
type Rewards struct {
	Rates     []RewardRate    `json:"rates"`
	MinSize   decimal.Decimal `json:"min_size"`
	MaxSpread decimal.Decimal `json:"max_spread"`
}

// RewardRate is one daily reward rate.
type RewardRate struct {
	AssetAddress     Hex             `json:"asset_address"`
	RewardsDailyRate decimal.Decimal `json:"rewards_daily_rate"`
}

// Token is one outcome token of a CLOB market. TokenID is a decimal string,
// empty for markets that were never launched.
type Token struct {
	TokenID string          `json:"token_id"`
	Outcome string          `json:"outcome"`
	Price   decimal.Decimal `json:"price"`
	Winner  bool            `json:"winner"`
}

// BookParams is one entry of the POST /books request body.
type BookParams struct {
	TokenID string `json:"token_id"`
}

// OrderSummary is one price level of a book.
type OrderSummary struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBookSummary is a book as returned by POST /books. Timestamp is a
// millisecond Unix epoch encoded as a string.
type OrderBookSummary struct {
	Market         Hex                 `json:"market"`
	AssetID        string              `json:"asset_id"`
	Timestamp      string              `json:"timestamp"`
	Hash           string              `json:"hash"`
	Bids           []OrderSummary      `json:"bids"`
	Asks           []OrderSummary      `json:"asks"`
	MinOrderSize   decimal.Decimal     `json:"min_order_size"`
	TickSize       decimal.Decimal     `json:"tick_size"`
	NegRisk        bool                `json:"neg_risk"`
	LastTradePrice decimal.NullDecimal `json:"last_trade_price"`
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// Event is the subset of a Gamma event the cache reads. Markets is nil when
// the API omits the list and empty when it sends [].
type Event struct {
	ID      string        `json:"id"`
	Slug    *string       `json:"slug"`
	Title   string        `json:"title,omitempty"`
	Active  flexBool      `json:"active"`
	Closed  bool          `json:"closed"`
	Markets []GammaMarket `json:"markets"`
}

// GammaMarket is the subset of a Gamma market the cache reads.
type GammaMarket struct {
	ID            string      `json:"id,omitempty"`
	Question      *string     `json:"question"`
	Slug          string      `json:"slug,omitempty"`
	Outcomes      StringList  `json:"outcomes"`
	OutcomePrices DecimalList `json:"outcomePrices"`
	EndDate       NullTime    `json:"endDate"`
	// EndDateISO is a calendar date such as "2024-11-05".
	EndDateISO *string `json:"endDateIso"`
}

// IsFresh reports whether the market ends on or after the cutoff. Markets
// without an end date are not fresh.
func (m *GammaMarket) IsFresh(cutoff time.Time) bool {
	return m.EndDate.Valid && !m.EndDate.Time.Before(cutoff)
}

// IsFresh reports whether the event has no market list or every market in
// it is fresh.
func (e *Event) IsFresh(cutoff time.Time) bool {
	for i := range e.Markets {
		if !e.Markets[i].IsFresh(cutoff) {
			return false
		}
	}
	return true
}
