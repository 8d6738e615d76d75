package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MarketIdentity is the condition/question id pair of a launched market.
// Either both ids are known or the market has no identity at all.
type MarketIdentity struct {
	ConditionID ConditionID `json:"condition_id"`
	QuestionID  QuestionID  `json:"question_id"`
}

// NewMarketIdentity builds the identity from the two optional ids. It
// returns nil when both are absent and ErrIdentityMismatch when only one is.
func NewMarketIdentity(conditionID *ConditionID, questionID *QuestionID) (*MarketIdentity, error) {
	switch {
	case conditionID == nil && questionID == nil:
		return nil, nil
	case conditionID != nil && questionID != nil:
		return &MarketIdentity{ConditionID: *conditionID, QuestionID: *questionID}, nil
	default:
		return nil, fmt.Errorf("%w: condition_id present=%t question_id present=%t",
			ErrIdentityMismatch, conditionID != nil, questionID != nil)
	}
}

// NegRisk links a market to its negative-risk event. EventID is the venue's
// neg_risk_market_id, QuestionID its neg_risk_request_id.
type NegRisk struct {
	EventID    common.Hash `json:"event_id"`
	QuestionID common.Hash `json:"question_id"`
}

// NewNegRisk collapses the neg-risk flag and its two optional ids into one
// optional pair. The flag must be true exactly when both ids are present.
func NewNegRisk(flag bool, eventID, questionID *common.Hash) (*NegRisk, error) {
	switch {
	case !flag && eventID == nil && questionID == nil:
		return nil, nil
	case flag && eventID != nil && questionID != nil:
		return &NegRisk{EventID: *eventID, QuestionID: *questionID}, nil
	default:
		return nil, fmt.Errorf("%w: neg_risk=%t market_id present=%t request_id present=%t",
			ErrNegRiskMismatch, flag, eventID != nil, questionID != nil)
	}
}

// RewardRate is a daily liquidity reward paid in one asset.
type RewardRate struct {
	AssetAddress     common.Address  `json:"asset_address"`
	RewardsDailyRate decimal.Decimal `json:"rewards_daily_rate"`
}

// Rewards describes the liquidity reward program of a market.
type Rewards struct {
	Rates     []RewardRate    `json:"rates"`
	MinSize   decimal.Decimal `json:"min_size"`
	MaxSpread decimal.Decimal `json:"max_spread"`
}

// Token is one outcome position of a binary market.
type Token struct {
	TokenID TokenID         `json:"token_id"`
	Outcome string          `json:"outcome"`
	Price   decimal.Decimal `json:"price"`
	Winner  bool            `json:"winner"`
}

// TokenPair holds the two tokens of a market in the order the venue lists
// them. Left is not necessarily "Yes".
type TokenPair struct {
	Left  Token `json:"left"`
	Right Token `json:"right"`
}

// NewTokenPair requires exactly two tokens.
func NewTokenPair(tokens []Token) (TokenPair, error) {
	if len(tokens) != 2 {
		return TokenPair{}, fmt.Errorf("%w: got %d", ErrTokensLength, len(tokens))
	}
	return TokenPair{Left: tokens[0], Right: tokens[1]}, nil
}

// Slice returns the tokens in venue order.
func (p TokenPair) Slice() []Token {
	return []Token{p.Left, p.Right}
}

// IDs returns the left and right token ids.
func (p TokenPair) IDs() [2]TokenID {
	return [2]TokenID{p.Left.TokenID, p.Right.TokenID}
}

// Winner derives the resolution outcome from the two winner flags.
func (p TokenPair) Winner() Winner {
	switch {
	case p.Left.Winner && p.Right.Winner:
		return Winner{Kind: BothWinners}
	case p.Left.Winner:
		return Winner{Kind: OneWinner, TokenID: p.Left.TokenID}
	case p.Right.Winner:
		return Winner{Kind: OneWinner, TokenID: p.Right.TokenID}
	default:
		return Winner{Kind: NoWinner}
	}
}

// WinnerKind is the tri-state resolution of a market.
type WinnerKind uint8

const (
	NoWinner WinnerKind = iota
	OneWinner
	BothWinners
)

func (k WinnerKind) String() string {
	switch k {
	case NoWinner:
		return "none"
	case OneWinner:
		return "one"
	case BothWinners:
		return "both"
	default:
		return fmt.Sprintf("WinnerKind(%d)", uint8(k))
	}
}

// MarshalText renders the kind by name.
func (k WinnerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Winner is the resolved outcome. TokenID is only meaningful for OneWinner.
type Winner struct {
	Kind    WinnerKind `json:"kind"`
	TokenID TokenID    `json:"token_id,omitzero"`
}

// MarketResponse is the strict form of a CLOB market record.
type MarketResponse struct {
	Question    string `json:"question"`
	Description string `json:"description"`
	Slug        string `json:"market_slug"`
	Icon        string `json:"icon"`
	Image       string `json:"image"`

	// Identity is nil for markets the venue never launched.
	Identity *MarketIdentity `json:"identity,omitempty"`

	Active          bool `json:"active"`
	Closed          bool `json:"closed"`
	Archived        bool `json:"archived"`
	EnableOrderBook bool `json:"enable_order_book"`
	AcceptingOrders bool `json:"accepting_orders"`

	AcceptingOrderTimestamp *time.Time      `json:"accepting_order_timestamp,omitempty"`
	MinimumOrderSize        decimal.Decimal `json:"minimum_order_size"`
	MinimumTickSize         decimal.Decimal `json:"minimum_tick_size"`
	EndDateISO              *time.Time      `json:"end_date_iso,omitempty"`
	GameStartTime           *time.Time      `json:"game_start_time,omitempty"`
	SecondsDelay            time.Duration   `json:"seconds_delay"`
	FPMM                    *common.Address `json:"fpmm,omitempty"`
	MakerBaseFee            decimal.Decimal `json:"maker_base_fee"`
	TakerBaseFee            decimal.Decimal `json:"taker_base_fee"`
	NotificationsEnabled    bool            `json:"notifications_enabled"`

	NegRisk       *NegRisk  `json:"neg_risk,omitempty"`
	Rewards       Rewards   `json:"rewards"`
	Tokens        TokenPair `json:"tokens"`
	Is5050Outcome bool      `json:"is_50_50_outcome"`
	Tags          []string  `json:"tags"`
}

// ConditionID returns the condition id, or nil for an unlaunched market.
func (m *MarketResponse) ConditionID() *ConditionID {
	if m.Identity == nil {
		return nil
	}
	return &m.Identity.ConditionID
}

// QuestionID returns the question id, or nil for an unlaunched market.
func (m *MarketResponse) QuestionID() *QuestionID {
	if m.Identity == nil {
		return nil
	}
	return &m.Identity.QuestionID
}

// IsLaunched reports whether the venue assigned the market its ids.
func (m *MarketResponse) IsLaunched() bool {
	return m.Identity != nil
}

// ShouldDownloadOrderBooks reports whether the market has a live book.
func (m *MarketResponse) ShouldDownloadOrderBooks() bool {
	return m.EnableOrderBook && m.Active && m.AcceptingOrders && !m.Closed && !m.Archived
}

// Market is the flattened view of a launched market derived from its
// MarketResponse.
type Market struct {
	Question                string          `json:"question"`
	Description             string          `json:"description"`
	Slug                    string          `json:"slug"`
	ConditionID             ConditionID     `json:"condition_id"`
	QuestionID              QuestionID      `json:"question_id"`
	Active                  bool            `json:"active"`
	Closed                  bool            `json:"closed"`
	Archived                bool            `json:"archived"`
	EnableOrderBook         bool            `json:"enable_order_book"`
	AcceptingOrders         bool            `json:"accepting_orders"`
	AcceptingOrderTimestamp *time.Time      `json:"accepting_order_timestamp,omitempty"`
	MinimumOrderSize        decimal.Decimal `json:"minimum_order_size"`
	MinimumTickSize         decimal.Decimal `json:"minimum_tick_size"`
	EndDate                 *time.Time      `json:"end_date,omitempty"`
	FPMM                    *common.Address `json:"fpmm,omitempty"`
	MakerBaseFee            decimal.Decimal `json:"maker_base_fee"`
	TakerBaseFee            decimal.Decimal `json:"taker_base_fee"`
	LeftTokenID             TokenID         `json:"left_token_id"`
	RightTokenID            TokenID         `json:"right_token_id"`
	Winner                  Winner          `json:"winner"`
	NegRisk                 *NegRisk        `json:"neg_risk,omitempty"`
	Is5050Outcome           bool            `json:"is_50_50_outcome"`
}

// IsTradeable reports whether orders can currently be placed.
func (m *Market) IsTradeable() bool {
	return m.Active && !m.Closed && !m.Archived && m.AcceptingOrders && m.EnableOrderBook
}

// TokenIDs returns the left and right token ids.
func (m *Market) TokenIDs() [2]TokenID {
	return [2]TokenID{m.LeftTokenID, m.RightTokenID}
}
