package codec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/polycache/internal/analytics"
	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
	"github.com/shopspring/decimal"
)

// GammaEventFromRaw keeps the slice of a Gamma event the cache needs and
// precomputes its date-cascade classification. The conversion is lossy by
// construction, so there is no inverse.
func GammaEventFromRaw(raw *polymarket.Event) (domain.GammaEvent, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return domain.GammaEvent{}, fmt.Errorf("%w: event id is empty", domain.ErrInvalidIdentifier)
	}
	id, err := domain.ParseEventID(raw.ID)
	if err != nil {
		return domain.GammaEvent{}, err
	}
	if raw.Slug == nil {
		return domain.GammaEvent{}, fmt.Errorf("%w: event %s has no slug", domain.ErrInvalidIdentifier, raw.ID)
	}

	ev := domain.GammaEvent{ID: id, Slug: *raw.Slug}
	if raw.Markets == nil {
		return ev, nil
	}

	var errs []error
	ev.HasMarkets = true
	ev.Markets = make([]domain.GammaMarket, 0, len(raw.Markets))
	for i := range raw.Markets {
		mk, err := GammaMarketFromRaw(&raw.Markets[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("markets[%d]: %w", i, err))
			continue
		}
		ev.Markets = append(ev.Markets, mk)
	}
	if len(errs) > 0 {
		return domain.GammaEvent{}, fmt.Errorf("convert %d of %d markets of event %s: %w",
			len(errs), len(raw.Markets), raw.ID, errors.Join(errs...))
	}

	cascade := analytics.IsDateCascade(ev.Questions())
	ev.IsDateCascade = &cascade
	return ev, nil
}

// GammaMarketFromRaw converts one Gamma market. Markets ending before
// domain.FreshnessCutoff, or without an end date, are unsupported.
func GammaMarketFromRaw(raw *polymarket.GammaMarket) (domain.GammaMarket, error) {
	if !raw.IsFresh(domain.FreshnessCutoff) {
		return domain.GammaMarket{}, fmt.Errorf("%w: market %s ends before %s",
			domain.ErrUnsupportedMarket, raw.ID, domain.FreshnessCutoff.Format(time.DateOnly))
	}
	if raw.Question == nil {
		return domain.GammaMarket{}, fmt.Errorf("%w: market %s has no question", domain.ErrUnsupportedMarket, raw.ID)
	}
	if len(raw.OutcomePrices) > 2 {
		return domain.GammaMarket{}, fmt.Errorf("%w: market %s has %d", domain.ErrTooManyOutcomePrice, raw.ID, len(raw.OutcomePrices))
	}

	mk := domain.GammaMarket{Question: *raw.Question}
	if raw.Outcomes != nil {
		mk.Outcomes = append([]string{}, raw.Outcomes...)
	}
	if len(raw.OutcomePrices) > 0 {
		mk.YesPrice = decimal.NewNullDecimal(raw.OutcomePrices[0])
	}
	if len(raw.OutcomePrices) > 1 {
		mk.NoPrice = decimal.NewNullDecimal(raw.OutcomePrices[1])
	}
	if raw.EndDateISO != nil {
		d, err := time.Parse(time.DateOnly, *raw.EndDateISO)
		if err != nil {
			return domain.GammaMarket{}, fmt.Errorf("%w: market %s endDateIso %q", domain.ErrInvalidTimestamp, raw.ID, *raw.EndDateISO)
		}
		mk.EndDate = &d
	}
	return mk, nil
}
