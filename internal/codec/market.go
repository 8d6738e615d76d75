package codec

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
	"github.com/ethereum/go-ethereum/common"
)

// maxSecondsDelay keeps seconds_delay representable as a time.Duration.
const maxSecondsDelay = math.MaxInt64 / uint64(time.Second)

// MarketResponseFromRaw converts a CLOB market into its strict form.
func MarketResponseFromRaw(raw *polymarket.MarketResponse) (domain.MarketResponse, error) {
	var errs []error
	collect := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	conditionID, cErr := optHash(raw.ConditionID)
	collect("condition_id", cErr)
	questionID, qErr := optHash(raw.QuestionID)
	collect("question_id", qErr)
	var identity *domain.MarketIdentity
	if cErr == nil && qErr == nil {
		var err error
		identity, err = domain.NewMarketIdentity(conditionID, questionID)
		collect("identity", err)
	}

	negEventID, err := optHash(raw.NegRiskMarketID)
	collect("neg_risk_market_id", err)
	negQuestionID, err := optHash(raw.NegRiskRequestID)
	collect("neg_risk_request_id", err)
	negRisk, err := domain.NewNegRisk(raw.NegRisk, negEventID, negQuestionID)
	collect("neg_risk", err)

	fpmm, err := optAddress(raw.FPMM)
	collect("fpmm", err)

	if raw.SecondsDelay > maxSecondsDelay {
		collect("seconds_delay", fmt.Errorf("%d overflows", raw.SecondsDelay))
	}

	rates := make([]domain.RewardRate, 0, len(raw.Rewards.Rates))
	for i, r := range raw.Rewards.Rates {
		addr, err := domain.ParseAddress(string(r.AssetAddress))
		collect(fmt.Sprintf("rewards.rates[%d].asset_address", i), err)
		rates = append(rates, domain.RewardRate{AssetAddress: addr, RewardsDailyRate: r.RewardsDailyRate})
	}

	tokens := make([]domain.Token, 0, len(raw.Tokens))
	for i, t := range raw.Tokens {
		id, err := domain.ParseTokenID(t.TokenID)
		collect(fmt.Sprintf("tokens[%d].token_id", i), err)
		tokens = append(tokens, domain.Token{TokenID: id, Outcome: t.Outcome, Price: t.Price, Winner: t.Winner})
	}
	pair, err := domain.NewTokenPair(tokens)
	collect("tokens", err)

	if len(errs) > 0 {
		return domain.MarketResponse{}, errors.Join(errs...)
	}

	return domain.MarketResponse{
		Question:                raw.Question,
		Description:             raw.Description,
		Slug:                    raw.MarketSlug,
		Icon:                    raw.Icon,
		Image:                   raw.Image,
		Identity:                identity,
		Active:                  raw.Active,
		Closed:                  raw.Closed,
		Archived:                raw.Archived,
		EnableOrderBook:         raw.EnableOrderBook,
		AcceptingOrders:         raw.AcceptingOrders,
		AcceptingOrderTimestamp: raw.AcceptingOrderTimestamp.Ptr(),
		MinimumOrderSize:        raw.MinimumOrderSize,
		MinimumTickSize:         raw.MinimumTickSize,
		EndDateISO:              raw.EndDateISO.Ptr(),
		GameStartTime:           raw.GameStartTime.Ptr(),
		SecondsDelay:            time.Duration(raw.SecondsDelay) * time.Second,
		FPMM:                    fpmm,
		MakerBaseFee:            raw.MakerBaseFee,
		TakerBaseFee:            raw.TakerBaseFee,
		NotificationsEnabled:    raw.NotificationsEnabled,
		NegRisk:                 negRisk,
		Rewards: domain.Rewards{
			Rates:     rates,
			MinSize:   raw.Rewards.MinSize,
			MaxSpread: raw.Rewards.MaxSpread,
		},
		Tokens:        pair,
		Is5050Outcome: raw.Is5050Outcome,
		Tags:          raw.Tags,
	}, nil
}

// MarketResponseToRaw is the inverse of MarketResponseFromRaw.
func MarketResponseToRaw(m *domain.MarketResponse) polymarket.MarketResponse {
	raw := polymarket.MarketResponse{
		EnableOrderBook:         m.EnableOrderBook,
		Active:                  m.Active,
		Closed:                  m.Closed,
		Archived:                m.Archived,
		AcceptingOrders:         m.AcceptingOrders,
		AcceptingOrderTimestamp: polymarket.NullTimeFrom(m.AcceptingOrderTimestamp),
		MinimumOrderSize:        m.MinimumOrderSize,
		MinimumTickSize:         m.MinimumTickSize,
		Question:                m.Question,
		Description:             m.Description,
		MarketSlug:              m.Slug,
		EndDateISO:              polymarket.NullTimeFrom(m.EndDateISO),
		GameStartTime:           polymarket.NullTimeFrom(m.GameStartTime),
		SecondsDelay:            uint64(m.SecondsDelay / time.Second),
		MakerBaseFee:            m.MakerBaseFee,
		TakerBaseFee:            m.TakerBaseFee,
		NotificationsEnabled:    m.NotificationsEnabled,
		Icon:                    m.Icon,
		Image:                   m.Image,
		Rewards: polymarket.Rewards{
			MinSize:   m.Rewards.MinSize,
			MaxSpread: m.Rewards.MaxSpread,
		},
		Is5050Outcome: m.Is5050Outcome,
		Tags:          m.Tags,
	}
	if m.Identity != nil {
		raw.ConditionID = polymarket.Hex(m.Identity.ConditionID.Hex())
		raw.QuestionID = polymarket.Hex(m.Identity.QuestionID.Hex())
	}
	if m.FPMM != nil {
		raw.FPMM = polymarket.Hex(m.FPMM.Hex())
	}
	if m.NegRisk != nil {
		raw.NegRisk = true
		raw.NegRiskMarketID = polymarket.Hex(m.NegRisk.EventID.Hex())
		raw.NegRiskRequestID = polymarket.Hex(m.NegRisk.QuestionID.Hex())
	}
	for _, r := range m.Rewards.Rates {
		raw.Rewards.Rates = append(raw.Rewards.Rates, polymarket.RewardRate{
			AssetAddress:     polymarket.Hex(r.AssetAddress.Hex()),
			RewardsDailyRate: r.RewardsDailyRate,
		})
	}
	for _, t := range m.Tokens.Slice() {
		raw.Tokens = append(raw.Tokens, polymarket.Token{
			TokenID: domain.FormatTokenID(t.TokenID),
			Outcome: t.Outcome,
			Price:   t.Price,
			Winner:  t.Winner,
		})
	}
	return raw
}

// DeriveMarket flattens a launched market response. It returns nil for
// markets without an identity.
func DeriveMarket(m *domain.MarketResponse) (*domain.Market, error) {
	if m.Identity == nil {
		return nil, nil
	}
	winner := m.Tokens.Winner()
	if winner.Kind == domain.BothWinners && !m.Is5050Outcome {
		return nil, domain.ErrBothWinnersNot5050
	}
	ids := m.Tokens.IDs()
	return &domain.Market{
		Question:                m.Question,
		Description:             m.Description,
		Slug:                    m.Slug,
		ConditionID:             m.Identity.ConditionID,
		QuestionID:              m.Identity.QuestionID,
		Active:                  m.Active,
		Closed:                  m.Closed,
		Archived:                m.Archived,
		EnableOrderBook:         m.EnableOrderBook,
		AcceptingOrders:         m.AcceptingOrders,
		AcceptingOrderTimestamp: m.AcceptingOrderTimestamp,
		MinimumOrderSize:        m.MinimumOrderSize,
		MinimumTickSize:         m.MinimumTickSize,
		EndDate:                 m.EndDateISO,
		FPMM:                    m.FPMM,
		MakerBaseFee:            m.MakerBaseFee,
		TakerBaseFee:            m.TakerBaseFee,
		LeftTokenID:             ids[0],
		RightTokenID:            ids[1],
		Winner:                  winner,
		NegRisk:                 m.NegRisk,
		Is5050Outcome:           m.Is5050Outcome,
	}, nil
}

func optHash(s polymarket.Hex) (*common.Hash, error) {
	if s == "" {
		return nil, nil
	}
	h, err := domain.ParseHash32(string(s))
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func optAddress(s polymarket.Hex) (*common.Address, error) {
	if s == "" {
		return nil, nil
	}
	a, err := domain.ParseAddress(string(s))
	if err != nil {
		return nil, err
	}
	return &a, nil
}
