package codec

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
)

// OrderBookFromRaw converts a CLOB book into its strict form.
func OrderBookFromRaw(raw *polymarket.OrderBookSummary) (domain.OrderBookSummary, error) {
	var errs []error

	conditionID, err := domain.ParseHash32(string(raw.Market))
	if err != nil {
		errs = append(errs, fmt.Errorf("market: %w", err))
	}

	var tokenID domain.TokenID
	if raw.AssetID == "" {
		errs = append(errs, fmt.Errorf("asset_id: %w: empty", domain.ErrInvalidIdentifier))
	} else if tokenID, err = domain.ParseTokenID(raw.AssetID); err != nil {
		errs = append(errs, fmt.Errorf("asset_id: %w", err))
	}

	ms, err := strconv.ParseInt(raw.Timestamp, 10, 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("timestamp: %w: %q", domain.ErrInvalidTimestamp, raw.Timestamp))
	}

	bids, err := domain.NewBookSide(levelsFromRaw(raw.Bids))
	if err != nil {
		errs = append(errs, fmt.Errorf("bids: %w", err))
	}
	asks, err := domain.NewBookSide(levelsFromRaw(raw.Asks))
	if err != nil {
		errs = append(errs, fmt.Errorf("asks: %w", err))
	}

	if len(errs) > 0 {
		return domain.OrderBookSummary{}, errors.Join(errs...)
	}

	return domain.OrderBookSummary{
		ConditionID:    conditionID,
		TokenID:        tokenID,
		UpdatedAt:      time.UnixMilli(ms).UTC(),
		Hash:           raw.Hash,
		LastTradePrice: raw.LastTradePrice,
		MinOrderSize:   raw.MinOrderSize,
		MinTickSize:    raw.TickSize,
		NegRisk:        raw.NegRisk,
		Bids:           bids,
		Asks:           asks,
	}, nil
}

// OrderBookToRaw is the inverse of OrderBookFromRaw.
func OrderBookToRaw(b *domain.OrderBookSummary) polymarket.OrderBookSummary {
	return polymarket.OrderBookSummary{
		Market:         polymarket.Hex(b.ConditionID.Hex()),
		AssetID:        domain.FormatTokenID(b.TokenID),
		Timestamp:      strconv.FormatInt(b.UpdatedAt.UnixMilli(), 10),
		Hash:           b.Hash,
		Bids:           levelsToRaw(b.Bids),
		Asks:           levelsToRaw(b.Asks),
		MinOrderSize:   b.MinOrderSize,
		TickSize:       b.MinTickSize,
		NegRisk:        b.NegRisk,
		LastTradePrice: b.LastTradePrice,
	}
}

func levelsFromRaw(in []polymarket.OrderSummary) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(in))
	for i, s := range in {
		out[i] = domain.PriceLevel{Price: s.Price, Size: s.Size}
	}
	return out
}

func levelsToRaw(in domain.BookSide) []polymarket.OrderSummary {
	out := make([]polymarket.OrderSummary, len(in))
	for i, l := range in {
		out[i] = polymarket.OrderSummary{Price: l.Price, Size: l.Size}
	}
	return out
}
