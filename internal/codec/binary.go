package codec

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/protobuf/encoding/protowire"
)

// Store values are protobuf wire-format messages written by hand. Field
// numbers below are part of the on-disk format and must not be reused.

// --------------------------------------------------------------------------
// MarketResponse
// --------------------------------------------------------------------------

// MarshalMarketResponse encodes a market response for the store.
func MarshalMarketResponse(m *domain.MarketResponse) []byte {
	var e encoder
	e.string(1, m.Question)
	e.string(2, m.Description)
	e.string(3, m.Slug)
	e.string(4, m.Icon)
	e.string(5, m.Image)
	if m.Identity != nil {
		e.message(6, func(s *encoder) {
			s.hash(1, m.Identity.ConditionID)
			s.hash(2, m.Identity.QuestionID)
		})
	}
	e.bool(7, m.Active)
	e.bool(8, m.Closed)
	e.bool(9, m.Archived)
	e.bool(10, m.EnableOrderBook)
	e.bool(11, m.AcceptingOrders)
	e.optTime(12, m.AcceptingOrderTimestamp)
	e.decimal(13, m.MinimumOrderSize)
	e.decimal(14, m.MinimumTickSize)
	e.optTime(15, m.EndDateISO)
	e.optTime(16, m.GameStartTime)
	e.varint(17, uint64(m.SecondsDelay/time.Second))
	if m.FPMM != nil {
		e.bytes(18, m.FPMM.Bytes())
	}
	e.decimal(19, m.MakerBaseFee)
	e.decimal(20, m.TakerBaseFee)
	e.bool(21, m.NotificationsEnabled)
	if m.NegRisk != nil {
		e.message(22, func(s *encoder) { encodeNegRisk(s, m.NegRisk) })
	}
	e.message(23, func(s *encoder) {
		for _, r := range m.Rewards.Rates {
			s.message(1, func(rs *encoder) {
				rs.bytes(1, r.AssetAddress.Bytes())
				rs.decimal(2, r.RewardsDailyRate)
			})
		}
		s.decimal(2, m.Rewards.MinSize)
		s.decimal(3, m.Rewards.MaxSpread)
	})
	e.message(24, func(s *encoder) { encodeToken(s, &m.Tokens.Left) })
	e.message(25, func(s *encoder) { encodeToken(s, &m.Tokens.Right) })
	e.bool(26, m.Is5050Outcome)
	for _, tag := range m.Tags {
		e.string(27, tag)
	}
	return e.b
}

// UnmarshalMarketResponse decodes a value written by MarshalMarketResponse.
func UnmarshalMarketResponse(b []byte) (domain.MarketResponse, error) {
	var m domain.MarketResponse
	err := readFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.Question = f.string()
		case 2:
			m.Description = f.string()
		case 3:
			m.Slug = f.string()
		case 4:
			m.Icon = f.string()
		case 5:
			m.Image = f.string()
		case 6:
			var id domain.MarketIdentity
			err = readFields(f.raw, func(s field) error {
				var err error
				switch s.num {
				case 1:
					id.ConditionID, err = s.hash()
				case 2:
					id.QuestionID, err = s.hash()
				}
				return err
			})
			m.Identity = &id
		case 7:
			m.Active = f.bool()
		case 8:
			m.Closed = f.bool()
		case 9:
			m.Archived = f.bool()
		case 10:
			m.EnableOrderBook = f.bool()
		case 11:
			m.AcceptingOrders = f.bool()
		case 12:
			m.AcceptingOrderTimestamp, err = f.timePtr()
		case 13:
			m.MinimumOrderSize, err = f.decimal()
		case 14:
			m.MinimumTickSize, err = f.decimal()
		case 15:
			m.EndDateISO, err = f.timePtr()
		case 16:
			m.GameStartTime, err = f.timePtr()
		case 17:
			m.SecondsDelay = time.Duration(f.varint) * time.Second
		case 18:
			var a common.Address
			a, err = f.address()
			m.FPMM = &a
		case 19:
			m.MakerBaseFee, err = f.decimal()
		case 20:
			m.TakerBaseFee, err = f.decimal()
		case 21:
			m.NotificationsEnabled = f.bool()
		case 22:
			m.NegRisk, err = decodeNegRisk(f.raw)
		case 23:
			m.Rewards, err = decodeRewards(f.raw)
		case 24:
			m.Tokens.Left, err = decodeToken(f.raw)
		case 25:
			m.Tokens.Right, err = decodeToken(f.raw)
		case 26:
			m.Is5050Outcome = f.bool()
		case 27:
			m.Tags = append(m.Tags, f.string())
		}
		return err
	})
	if err != nil {
		return domain.MarketResponse{}, fmt.Errorf("codec: unmarshal market response: %w", err)
	}
	return m, nil
}

func encodeNegRisk(e *encoder, n *domain.NegRisk) {
	e.hash(1, n.EventID)
	e.hash(2, n.QuestionID)
}

func decodeNegRisk(b []byte) (*domain.NegRisk, error) {
	var n domain.NegRisk
	err := readFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			n.EventID, err = f.hash()
		case 2:
			n.QuestionID, err = f.hash()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func encodeToken(e *encoder, t *domain.Token) {
	e.tokenID(1, t.TokenID)
	e.string(2, t.Outcome)
	e.decimal(3, t.Price)
	e.bool(4, t.Winner)
}

func decodeToken(b []byte) (domain.Token, error) {
	var t domain.Token
	err := readFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			t.TokenID, err = f.tokenID()
		case 2:
			t.Outcome = f.string()
		case 3:
			t.Price, err = f.decimal()
		case 4:
			t.Winner = f.bool()
		}
		return err
	})
	return t, err
}

func decodeRewards(b []byte) (domain.Rewards, error) {
	var r domain.Rewards
	err := readFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var rate domain.RewardRate
			err = readFields(f.raw, func(s field) error {
				var err error
				switch s.num {
				case 1:
					rate.AssetAddress, err = s.address()
				case 2:
					rate.RewardsDailyRate, err = s.decimal()
				}
				return err
			})
			r.Rates = append(r.Rates, rate)
		case 2:
			r.MinSize, err = f.decimal()
		case 3:
			r.MaxSpread, err = f.decimal()
		}
		return err
	})
	return r, err
}

// --------------------------------------------------------------------------
// Market
// --------------------------------------------------------------------------

// MarshalMarket encodes a derived market for the store.
func MarshalMarket(m *domain.Market) []byte {
	var e encoder
	e.string(1, m.Question)
	e.string(2, m.Description)
	e.string(3, m.Slug)
	e.hash(4, m.ConditionID)
	e.hash(5, m.QuestionID)
	e.bool(6, m.Active)
	e.bool(7, m.Closed)
	e.bool(8, m.Archived)
	e.bool(9, m.EnableOrderBook)
	e.bool(10, m.AcceptingOrders)
	e.optTime(11, m.AcceptingOrderTimestamp)
	e.decimal(12, m.MinimumOrderSize)
	e.decimal(13, m.MinimumTickSize)
	e.optTime(14, m.EndDate)
	if m.FPMM != nil {
		e.bytes(15, m.FPMM.Bytes())
	}
	e.decimal(16, m.MakerBaseFee)
	e.decimal(17, m.TakerBaseFee)
	e.tokenID(18, m.LeftTokenID)
	e.tokenID(19, m.RightTokenID)
	e.message(20, func(s *encoder) {
		s.varint(1, uint64(m.Winner.Kind))
		if m.Winner.Kind == domain.OneWinner {
			s.tokenID(2, m.Winner.TokenID)
		}
	})
	if m.NegRisk != nil {
		e.message(21, func(s *encoder) { encodeNegRisk(s, m.NegRisk) })
	}
	e.bool(22, m.Is5050Outcome)
	return e.b
}

// UnmarshalMarket decodes a value written by MarshalMarket.
func UnmarshalMarket(b []byte) (domain.Market, error) {
	var m domain.Market
	err := readFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.Question = f.string()
		case 2:
			m.Description = f.string()
		case 3:
			m.Slug = f.string()
		case 4:
			m.ConditionID, err = f.hash()
		case 5:
			m.QuestionID, err = f.hash()
		case 6:
			m.Active = f.bool()
		case 7:
			m.Closed = f.bool()
		case 8:
			m.Archived = f.bool()
		case 9:
			m.EnableOrderBook = f.bool()
		case 10:
			m.AcceptingOrders = f.bool()
		case 11:
			m.AcceptingOrderTimestamp, err = f.timePtr()
		case 12:
			m.MinimumOrderSize, err = f.decimal()
		case 13:
			m.MinimumTickSize, err = f.decimal()
		case 14:
			m.EndDate, err = f.timePtr()
		case 15:
			var a common.Address
			a, err = f.address()
			m.FPMM = &a
		case 16:
			m.MakerBaseFee, err = f.decimal()
		case 17:
			m.TakerBaseFee, err = f.decimal()
		case 18:
			m.LeftTokenID, err = f.tokenID()
		case 19:
			m.RightTokenID, err = f.tokenID()
		case 20:
			err = readFields(f.raw, func(s field) error {
				var err error
				switch s.num {
				case 1:
					m.Winner.Kind = domain.WinnerKind(s.varint)
				case 2:
					m.Winner.TokenID, err = s.tokenID()
				}
				return err
			})
		case 21:
			m.NegRisk, err = decodeNegRisk(f.raw)
		case 22:
			m.Is5050Outcome = f.bool()
		}
		return err
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("codec: unmarshal market: %w", err)
	}
	return m, nil
}

// --------------------------------------------------------------------------
// OrderBookSummary
// --------------------------------------------------------------------------

// MarshalOrderBook encodes an order book for the store.
func MarshalOrderBook(b *domain.OrderBookSummary) []byte {
	var e encoder
	e.hash(1, b.ConditionID)
	e.tokenID(2, b.TokenID)
	e.time(3, b.UpdatedAt)
	e.string(4, b.Hash)
	e.nullDecimal(5, b.LastTradePrice)
	e.decimal(6, b.MinOrderSize)
	e.decimal(7, b.MinTickSize)
	e.bool(8, b.NegRisk)
	encodeSide(&e, 9, b.Bids)
	encodeSide(&e, 10, b.Asks)
	return e.b
}

func encodeSide(e *encoder, num protowire.Number, side domain.BookSide) {
	for _, lvl := range side {
		e.message(num, func(s *encoder) {
			s.decimal(1, lvl.Price)
			s.decimal(2, lvl.Size)
		})
	}
}

// UnmarshalOrderBook decodes a value written by MarshalOrderBook.
func UnmarshalOrderBook(b []byte) (domain.OrderBookSummary, error) {
	var ob domain.OrderBookSummary
	err := readFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			ob.ConditionID, err = f.hash()
		case 2:
			ob.TokenID, err = f.tokenID()
		case 3:
			ob.UpdatedAt, err = f.time()
		case 4:
			ob.Hash = f.string()
		case 5:
			ob.LastTradePrice, err = f.nullDecimal()
		case 6:
			ob.MinOrderSize, err = f.decimal()
		case 7:
			ob.MinTickSize, err = f.decimal()
		case 8:
			ob.NegRisk = f.bool()
		case 9, 10:
			var lvl domain.PriceLevel
			err = readFields(f.raw, func(s field) error {
				var err error
				switch s.num {
				case 1:
					lvl.Price, err = s.decimal()
				case 2:
					lvl.Size, err = s.decimal()
				}
				return err
			})
			if f.num == 9 {
				ob.Bids = append(ob.Bids, lvl)
			} else {
				ob.Asks = append(ob.Asks, lvl)
			}
		}
		return err
	})
	if err != nil {
		return domain.OrderBookSummary{}, fmt.Errorf("codec: unmarshal order book: %w", err)
	}
	return ob, nil
}

// --------------------------------------------------------------------------
// GammaEvent
// --------------------------------------------------------------------------

// MarshalGammaEvent encodes an event for the store.
func MarshalGammaEvent(ev *domain.GammaEvent) []byte {
	var e encoder
	e.varint(1, ev.ID)
	e.string(2, ev.Slug)
	e.bool(3, ev.HasMarkets)
	for i := range ev.Markets {
		mk := &ev.Markets[i]
		e.message(4, func(s *encoder) {
			s.string(1, mk.Question)
			s.bool(2, mk.Outcomes != nil)
			for _, o := range mk.Outcomes {
				s.string(3, o)
			}
			s.nullDecimal(4, mk.YesPrice)
			s.nullDecimal(5, mk.NoPrice)
			s.optTime(6, mk.EndDate)
		})
	}
	if ev.IsDateCascade != nil {
		e.bool(5, *ev.IsDateCascade)
	}
	return e.b
}

// UnmarshalGammaEvent decodes a value written by MarshalGammaEvent.
func UnmarshalGammaEvent(b []byte) (domain.GammaEvent, error) {
	var ev domain.GammaEvent
	err := readFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			ev.ID = f.varint
		case 2:
			ev.Slug = f.string()
		case 3:
			ev.HasMarkets = f.bool()
		case 4:
			var mk domain.GammaMarket
			mk, err = decodeGammaMarket(f.raw)
			ev.Markets = append(ev.Markets, mk)
		case 5:
			v := f.bool()
			ev.IsDateCascade = &v
		}
		return err
	})
	if err != nil {
		return domain.GammaEvent{}, fmt.Errorf("codec: unmarshal gamma event: %w", err)
	}
	return ev, nil
}

func decodeGammaMarket(b []byte) (domain.GammaMarket, error) {
	var mk domain.GammaMarket
	err := readFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			mk.Question = f.string()
		case 2:
			if f.bool() && mk.Outcomes == nil {
				mk.Outcomes = []string{}
			}
		case 3:
			mk.Outcomes = append(mk.Outcomes, f.string())
		case 4:
			mk.YesPrice, err = f.nullDecimal()
		case 5:
			mk.NoPrice, err = f.nullDecimal()
		case 6:
			mk.EndDate, err = f.timePtr()
		}
		return err
	})
	return mk, err
}
