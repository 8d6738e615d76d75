package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/shopspring/decimal"
)

type marketProperty = Property[domain.MarketResponse]

// DefaultMarketProperties registers every market response property.
func DefaultMarketProperties() *Registry[domain.MarketResponse] {
	r := NewRegistry[domain.MarketResponse]()
	for _, f := range []func() marketProperty{
		func() marketProperty { return ActiveXorClosed{} },
		func() marketProperty { return IfAnyTokenIsWinnerThenMarketIsClosed{} },
		func() marketProperty { return IfConditionIdIsNoneThenOrdersAreDisabled{} },
		func() marketProperty { return IfConditionIdIsNoneThenTokensArePlaceholders{} },
		func() marketProperty { return IfIs5050OutcomeThenBothTokensAreWinners{} },
		func() marketProperty { return IfIs5050OutcomeThenBothTokensAreLosers{} },
		func() marketProperty { return Is5050OutcomeIffBothTokensAreWinners{} },
		func() marketProperty { return &MarketSlugIsUnique{} },
		func() marketProperty { return MaxWinnerTokenCountIsOne{} },
		func() marketProperty { return QuestionIdIsNoneIffConditionIdIsNone{} },
		func() marketProperty { return &TokenIdIsUnique{} },
		func() marketProperty { return &TokenIdIsUniqueOrZero{} },
		func() marketProperty { return TokenPricesAreBetweenZeroAndOne{} },
		func() marketProperty { return TokensLenIsTwo{} },
		func() marketProperty { return TradeableMarketHasOrderBooks{} },
	} {
		r.Register(f)
	}
	return r
}

// --------------------------------------------------------------------------
// Lifecycle flags
// --------------------------------------------------------------------------

// ActiveXorClosed holds when exactly one of active and closed is set.
type ActiveXorClosed struct{}

func (ActiveXorClosed) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	return m.Active != m.Closed, nil
}

// IfAnyTokenIsWinnerThenMarketIsClosed expects a market with a winning
// token to be closed.
type IfAnyTokenIsWinnerThenMarketIsClosed struct{}

func (IfAnyTokenIsWinnerThenMarketIsClosed) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	if m.Tokens.Winner().Kind == domain.NoWinner {
		return true, nil
	}
	return m.Closed, nil
}

// --------------------------------------------------------------------------
// Identity
// --------------------------------------------------------------------------

// IfConditionIdIsNoneThenOrdersAreDisabled expects unlaunched markets to
// neither enable an order book nor accept orders.
type IfConditionIdIsNoneThenOrdersAreDisabled struct{}

func (IfConditionIdIsNoneThenOrdersAreDisabled) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	if m.ConditionID() != nil {
		return true, nil
	}
	return !m.EnableOrderBook && !m.AcceptingOrders, nil
}

// IfConditionIdIsNoneThenTokensArePlaceholders expects unlaunched markets
// to carry tokens without ids.
type IfConditionIdIsNoneThenTokensArePlaceholders struct{}

func (IfConditionIdIsNoneThenTokensArePlaceholders) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	if m.ConditionID() != nil {
		return true, nil
	}
	return m.Tokens.Left.TokenID.IsZero() && m.Tokens.Right.TokenID.IsZero(), nil
}

// QuestionIdIsNoneIffConditionIdIsNone holds when both ids are present or
// both are absent.
type QuestionIdIsNoneIffConditionIdIsNone struct{}

func (QuestionIdIsNoneIffConditionIdIsNone) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	return (m.ConditionID() == nil) == (m.QuestionID() == nil), nil
}

// --------------------------------------------------------------------------
// Resolution
// --------------------------------------------------------------------------

// IfIs5050OutcomeThenBothTokensAreWinners expects a 50-50 resolution to
// mark both tokens as winners.
type IfIs5050OutcomeThenBothTokensAreWinners struct{}

func (IfIs5050OutcomeThenBothTokensAreWinners) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	return !m.Is5050Outcome || m.Tokens.Winner().Kind == domain.BothWinners, nil
}

// IfIs5050OutcomeThenBothTokensAreLosers is the opposite reading of a
// 50-50 resolution, where neither token is marked. Exactly one of the two
// is expected to fail for every 50-50 market.
type IfIs5050OutcomeThenBothTokensAreLosers struct{}

func (IfIs5050OutcomeThenBothTokensAreLosers) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	return !m.Is5050Outcome || m.Tokens.Winner().Kind == domain.NoWinner, nil
}

// Is5050OutcomeIffBothTokensAreWinners holds when the 50-50 flag and two
// winning tokens go together.
type Is5050OutcomeIffBothTokensAreWinners struct{}

func (Is5050OutcomeIffBothTokensAreWinners) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	return m.Is5050Outcome == (m.Tokens.Winner().Kind == domain.BothWinners), nil
}

// MaxWinnerTokenCountIsOne fails for markets where both tokens won.
type MaxWinnerTokenCountIsOne struct{}

func (MaxWinnerTokenCountIsOne) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	return m.Tokens.Winner().Kind != domain.BothWinners, nil
}

// --------------------------------------------------------------------------
// Tokens
// --------------------------------------------------------------------------

// TokensLenIsTwo holds when the market has exactly two tokens.
type TokensLenIsTwo struct{}

func (TokensLenIsTwo) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	return len(m.Tokens.Slice()) == 2, nil
}

var one = decimal.NewFromInt(1)

// TokenPricesAreBetweenZeroAndOne holds when every token price is a
// probability.
type TokenPricesAreBetweenZeroAndOne struct{}

func (TokenPricesAreBetweenZeroAndOne) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	for _, t := range m.Tokens.Slice() {
		if t.Price.IsNegative() || t.Price.GreaterThan(one) {
			return false, nil
		}
	}
	return true, nil
}

// TokenIdIsUnique fails for every market that repeats a token id seen
// earlier in the scan, including the zero id of placeholder tokens.
type TokenIdIsUnique struct {
	seen map[domain.TokenID]struct{}
}

func (p *TokenIdIsUnique) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	if p.seen == nil {
		p.seen = make(map[domain.TokenID]struct{})
	}
	return admitTokens(p.seen, m, false), nil
}

// TokenIdIsUniqueOrZero is TokenIdIsUnique without the placeholder tokens.
type TokenIdIsUniqueOrZero struct {
	seen map[domain.TokenID]struct{}
}

func (p *TokenIdIsUniqueOrZero) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	if p.seen == nil {
		p.seen = make(map[domain.TokenID]struct{})
	}
	return admitTokens(p.seen, m, true), nil
}

func admitTokens(seen map[domain.TokenID]struct{}, m *domain.MarketResponse, skipZero bool) bool {
	ok := true
	for _, id := range m.Tokens.IDs() {
		if skipZero && id.IsZero() {
			continue
		}
		if _, dup := seen[id]; dup {
			ok = false
			continue
		}
		seen[id] = struct{}{}
	}
	return ok
}

// MarketSlugIsUnique fails for every market whose slug was seen earlier in
// the scan.
type MarketSlugIsUnique struct {
	seen map[string]struct{}
}

func (p *MarketSlugIsUnique) Check(_ context.Context, _ []byte, m *domain.MarketResponse, _ domain.Snapshot) (bool, error) {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	if _, dup := p.seen[m.Slug]; dup {
		return false, nil
	}
	p.seen[m.Slug] = struct{}{}
	return true, nil
}

// --------------------------------------------------------------------------
// Cross-keyspace
// --------------------------------------------------------------------------

// TradeableMarketHasOrderBooks looks up the order book of both tokens of
// every market whose books the sync downloads.
type TradeableMarketHasOrderBooks struct{}

func (TradeableMarketHasOrderBooks) Check(ctx context.Context, _ []byte, m *domain.MarketResponse, snap domain.Snapshot) (bool, error) {
	if !m.ShouldDownloadOrderBooks() {
		return true, nil
	}
	for _, id := range m.Tokens.IDs() {
		if id.IsZero() {
			return false, nil
		}
		_, err := snap.Get(ctx, domain.KeyspaceOrderBooks, domain.TokenKey(id))
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("look up order book %s: %w", domain.FormatTokenID(id), err)
		}
	}
	return true, nil
}
