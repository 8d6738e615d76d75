// Package analytics classifies Gamma events whose markets differ only by a
// date and finds inverted pricing across those dates.
package analytics

import (
	"slices"

	"github.com/alanyoungcy/polycache/internal/domain"
)

// IsDateCascade reports whether the questions differ only by an embedded
// date. A single question has nothing to differ from and is never a cascade.
func IsDateCascade(questions []string) bool {
	if len(questions) < 2 {
		return false
	}
	for _, middle := range MiddleDiffs(questions) {
		if !IsDateLike(middle) {
			return false
		}
	}
	return true
}

// TimeSpreadOpportunities sorts the dated markets of a cascade by end date
// and returns every adjacent pair whose earlier market prices "yes" above
// the later one. eventURL is copied into each opportunity.
func TimeSpreadOpportunities(ev *domain.GammaEvent, eventURL string) []domain.TimeSpreadOpportunity {
	dated := make([]domain.GammaMarket, 0, len(ev.Markets))
	for _, m := range ev.Markets {
		if m.EndDate != nil {
			dated = append(dated, m)
		}
	}
	slices.SortStableFunc(dated, func(a, b domain.GammaMarket) int {
		return a.EndDate.Compare(*b.EndDate)
	})

	var out []domain.TimeSpreadOpportunity
	for i := 1; i < len(dated); i++ {
		prev, next := dated[i-1], dated[i]
		if !isInverted(&prev, &next) {
			continue
		}
		out = append(out, domain.TimeSpreadOpportunity{
			EventAPIURL: eventURL,
			Prev:        prev,
			Next:        next,
			Spread:      prev.YesPrice.Decimal.Sub(next.YesPrice.Decimal),
		})
	}
	return out
}

func isInverted(prev, next *domain.GammaMarket) bool {
	if len(prev.Outcomes) != 2 || len(next.Outcomes) != 2 {
		return false
	}
	if !prev.YesPrice.Valid || !next.YesPrice.Valid {
		return false
	}
	return prev.YesPrice.Decimal.GreaterThan(next.YesPrice.Decimal)
}
